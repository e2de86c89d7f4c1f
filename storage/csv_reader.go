package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"medellin-listings/models"
	"medellin-listings/utils"
)

// ErrSchema is returned when a listing file lacks a column the pipeline needs.
var ErrSchema = errors.New("listing file schema")

// ErrNoFiles is returned when no listing file matches the configured pattern.
var ErrNoFiles = errors.New("no listing files")

// Columns the loader requires. Everything else in ListingHeader is optional.
const (
	colPropertyID     = "propertyId"
	colSalePrice      = "salePrice"
	colArea           = "area"
	colExtractionDate = "Extraction Date"
	colCoordinates    = "coordinates"
)

var requiredColumns = []string{colPropertyID, colSalePrice, colArea, colExtractionDate, colCoordinates}

// dateLayouts are tried in order when parsing the extraction date.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006/01/02",
}

// CSVListingReader is the Record Loader: it unions listing CSV files into a
// single ordered table.
type CSVListingReader struct {
	logger *utils.Logger
}

// NewCSVListingReader creates a reader that logs through logger.
func NewCSVListingReader(logger *utils.Logger) *CSVListingReader {
	return &CSVListingReader{logger: logger}
}

// DiscoverListingFiles returns the files in dir matching pattern, sorted by
// name so the load order (and therefore dedup tie-breaks) is stable.
func DiscoverListingFiles(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("storage: glob %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s matched nothing in %s", ErrNoFiles, pattern, dir)
	}
	sort.Strings(matches)
	return matches, nil
}

// LoadListings reads every file in order and returns the concatenated rows.
// Any unreadable file or missing required column aborts the whole load.
// Bad values inside a row are left at their zero value.
func (r *CSVListingReader) LoadListings(paths []string) ([]*models.Listing, error) {
	var all []*models.Listing
	for _, p := range paths {
		rows, err := r.loadFile(p)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("[loader] %s: %d rows", filepath.Base(p), len(rows))
		all = append(all, rows...)
	}
	r.logger.Info("[loader] Loaded %d listings from %d file(s)", len(all), len(paths))
	return all, nil
}

func (r *CSVListingReader) loadFile(path string) ([]*models.Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %q: %w", path, err)
	}
	defer f.Close()

	return readListings(f, path)
}

func readListings(src io.Reader, name string) ([]*models.Listing, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %q is empty", ErrSchema, name)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read header of %q: %w", name, err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %q has no %q column", ErrSchema, name, col)
		}
	}

	field := func(rec []string, col string) string {
		i := idx[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var listings []*models.Listing
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: read %q row %d: %w", name, row, err)
		}

		listings = append(listings, &models.Listing{
			PropertyID:     normaliseID(field(rec, colPropertyID)),
			SalePrice:      parseNumber(field(rec, colSalePrice)),
			Area:           parseNumber(field(rec, colArea)),
			ExtractionDate: ParseDate(field(rec, colExtractionDate)),
			Coordinates:    field(rec, colCoordinates),
			Source:         name,
			Row:            row,
		})
	}
	return listings, nil
}

// ParseDate parses an ISO-style date. It returns the zero time when the
// value matches none of the accepted layouts.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseNumber reads a plain decimal as written by the scrapers. NaN, Inf
// and anything unparsable become 0.
func parseNumber(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// normaliseID undoes the float formatting a spreadsheet round trip puts on
// purely numeric ids ("1234.0" → "1234").
func normaliseID(s string) string {
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.ParseInt(strings.TrimSuffix(s, ".0"), 10, 64); err == nil {
			return strings.TrimSuffix(s, ".0")
		}
	}
	return s
}
