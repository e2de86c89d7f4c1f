package scraper

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"medellin-listings/models"
)

// DateLayout formats the Extraction Date column and the date in listing
// file names.
const DateLayout = "2006-01-02"

// Scraper collects one run of raw listings from a property portal.
type Scraper interface {
	Scrape(ctx context.Context) ([]*models.RawListing, error)
}

// OutputPath returns where a run's listing file is written:
// {dataDir}/{Type}/listings_data_m2_{city}_{YYYY-MM-DD}.csv
func OutputPath(dataDir string, pt models.PropertyType, city string, day time.Time) string {
	name := fmt.Sprintf("listings_data_m2_%s_%s.csv", city, day.Format(DateLayout))
	return filepath.Join(dataDir, string(pt), name)
}
