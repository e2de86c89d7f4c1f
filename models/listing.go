package models

import "time"

// PropertyType names one of the listing families collected for Medellín.
// The value doubles as the data sub-directory name.
type PropertyType string

const (
	Apartments PropertyType = "Apartments"
	Houses     PropertyType = "Houses"
	Offices    PropertyType = "Offices"
)

// Label is the Spanish caption used on rendered maps.
func (p PropertyType) Label() string {
	switch p {
	case Apartments:
		return "Apartamentos Usados"
	case Houses:
		return "Casas Usadas"
	case Offices:
		return "Oficinas Usadas"
	default:
		return string(p)
	}
}

// RawListing holds one scraped property exactly as extracted from the
// source site. Every field is kept as text; this is what gets written to
// the per-run CSV before any parsing.
type RawListing struct {
	PropertyID         string
	PropertyType       string
	SalePrice          string
	Area               string
	AreaC              string
	Rooms              string
	Bathrooms          string
	Garages            string
	City               string
	Zone               string
	Neighborhood       string
	CommonNeighborhood string
	AdminPrice         string
	CompanyName        string
	PropertyState      string
	Coordinates        string
	Link               string
	BuiltTime          string
	Stratum            string
	ExtractionDate     string
}

// Listing is one observed property record at one point in time, as loaded
// from a listing file. It is never mutated after loading.
type Listing struct {
	PropertyID     string
	SalePrice      float64 // 0 when missing or unparsable
	Area           float64 // 0 when missing or unparsable
	ExtractionDate time.Time
	Coordinates    string // encoded {lon, lat} structure, parsed by the geometry resolver

	Source string // file the row came from
	Row    int    // 1-based data row within Source
}

// HasSalePrice reports whether the listing carries a usable sale price.
func (l *Listing) HasSalePrice() bool {
	return l.SalePrice > 0
}

// PricePerArea returns salePrice / area. ok is false when either is missing.
func (l *Listing) PricePerArea() (value float64, ok bool) {
	if !l.HasSalePrice() || l.Area <= 0 {
		return 0, false
	}
	return l.SalePrice / l.Area, true
}

// Coordinates is a geographic point in EPSG:4326.
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// IsZero reports the (0,0) marker the scrapers use for "no coordinate captured".
func (c Coordinates) IsZero() bool {
	return c.Lon == 0 && c.Lat == 0
}

// GeoListing is a Listing whose coordinates resolved to a point.
// Region is empty until the spatial join assigns one, and stays empty when
// no region contains the point.
type GeoListing struct {
	*Listing
	Point   Coordinates
	Geohash string
	Region  string
}

// Assigned reports whether the spatial join matched a region.
func (g *GeoListing) Assigned() bool {
	return g.Region != ""
}
