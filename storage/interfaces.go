package storage

import "medellin-listings/models"

// RawListingWriter is the interface for persisting unprocessed scraped data.
type RawListingWriter interface {
	WriteRaw(listings []*models.RawListing) error
	Close() error
}

// ListingSource produces the unified listing table for one report.
type ListingSource interface {
	LoadListings(paths []string) ([]*models.Listing, error)
}

// ReportExporter writes an annotated region report somewhere and returns
// the path it wrote.
type ReportExporter interface {
	Export(report *models.RegionReport) (string, error)
}
