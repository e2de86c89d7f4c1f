package models

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// BoundaryRegion is a named administrative polygon (barrio or vereda) in
// EPSG:4326, annotated with the statistics of one reporting window.
type BoundaryRegion struct {
	Name     string
	Geometry orb.MultiPolygon
	Stats    RegionalStatistic
}

// Bound returns the region's bounding box.
func (r *BoundaryRegion) Bound() orb.Bound {
	return r.Geometry.Bound()
}

// RegionalStatistic summarises the listings assigned to one region.
// A nil statistic means "no data" (no listings, or suppressed because the
// sample is too small); it is never encoded as zero.
type RegionalStatistic struct {
	Count                   int      `json:"count"`
	MeanPrice               *float64 `json:"mean_price"`
	MedianPrice             *float64 `json:"median_price"`
	Q1                      *float64 `json:"q1"`
	Q3                      *float64 `json:"q3"`
	SemiInterquartileSpread *float64 `json:"siqr"`
	MedianPricePerArea      *float64 `json:"median_price_per_m2"`
	Suppressed              bool     `json:"suppressed"`
}

// HasMedian reports whether a median price is available for display.
func (s RegionalStatistic) HasMedian() bool {
	return s.MedianPrice != nil && *s.MedianPrice != 0
}

// StageCounts records how many rows survived each pipeline stage.
type StageCounts struct {
	Loaded         int
	InWindow       int
	BadDate        int
	MissingID      int
	Deduplicated   int
	WithPoint      int
	BadCoordinates int
	Joined         int
	Unassigned     int
}

// RegionReport is the annotated region-of-interest collection handed to
// the exporters and the renderer.
type RegionReport struct {
	RunID        string
	GeneratedAt  time.Time
	Title        string
	Slug         string
	PropertyType PropertyType
	Year         int
	Quarter      int
	MinSample    int

	Regions  []*BoundaryRegion
	Listings []*GeoListing
	Counts   StageCounts
}

// FileStem names an output of this report, e.g.
// FileStem("median_price") = "2025_Q1_median_price_Apartments_ElPoblado".
func (r *RegionReport) FileStem(kind string) string {
	return fmt.Sprintf("%d_Q%d_%s_%s_%s", r.Year, r.Quarter, kind, r.PropertyType, r.Slug)
}
