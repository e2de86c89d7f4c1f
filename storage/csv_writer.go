package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"medellin-listings/models"
)

// ListingHeader is the column layout shared by every listing file. The
// Record Loader reads files in this layout regardless of which scraper
// produced them.
var ListingHeader = []string{
	"propertyId", "propertyType", "salePrice", "area", "areac", "rooms", "bathrooms",
	"garages", "city", "zone", "neighborhood", "commonNeighborhood", "adminPrice",
	"companyName", "propertyState", "coordinates", "link", "builtTime", "stratum",
	"Extraction Date",
}

// CSVWriter writes scraped listings to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	rows   int
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(ListingHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends listings to the file and flushes.
func (c *CSVWriter) WriteRaw(listings []*models.RawListing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		row := []string{
			l.PropertyID,
			l.PropertyType,
			l.SalePrice,
			l.Area,
			l.AreaC,
			l.Rooms,
			l.Bathrooms,
			l.Garages,
			l.City,
			l.Zone,
			l.Neighborhood,
			l.CommonNeighborhood,
			l.AdminPrice,
			l.CompanyName,
			l.PropertyState,
			l.Coordinates,
			l.Link,
			l.BuiltTime,
			l.Stratum,
			l.ExtractionDate,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
		c.rows++
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Rows returns the number of data rows written so far.
func (c *CSVWriter) Rows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}
