package services

import (
	"fmt"
	"math"
	"sort"

	"medellin-listings/models"
	"medellin-listings/utils"
)

// DefaultMinSampleSize is the smallest group whose price statistics are shown.
const DefaultMinSampleSize = 5

// Aggregator computes per-region price statistics and hides those backed
// by too few listings.
type Aggregator struct {
	minSample int
	logger    *utils.Logger
}

// NewAggregator rejects a negative minimum sample size.
func NewAggregator(minSample int, logger *utils.Logger) (*Aggregator, error) {
	if minSample < 0 {
		return nil, fmt.Errorf("%w: minimum sample size must be >= 0, got %d", ErrInvalidConfig, minSample)
	}
	return &Aggregator{minSample: minSample, logger: logger}, nil
}

// MinSample returns the suppression threshold.
func (a *Aggregator) MinSample() int {
	return a.minSample
}

// Aggregate returns a copy of regions, in the same order, each annotated
// with the statistics of the listings assigned to it. Only listings with a
// positive sale price take part. Neither argument is modified.
func (a *Aggregator) Aggregate(regions []*models.BoundaryRegion, listings []*models.GeoListing) []*models.BoundaryRegion {
	prices := make(map[string][]float64)
	perArea := make(map[string][]float64)
	for _, l := range listings {
		if !l.Assigned() || !l.HasSalePrice() {
			continue
		}
		prices[l.Region] = append(prices[l.Region], l.SalePrice)
		if v, ok := l.PricePerArea(); ok {
			perArea[l.Region] = append(perArea[l.Region], v)
		}
	}

	out := make([]*models.BoundaryRegion, len(regions))
	suppressed := 0
	for i, r := range regions {
		stats := a.summarise(prices[r.Name], perArea[r.Name])
		if stats.Suppressed {
			suppressed++
		}
		out[i] = &models.BoundaryRegion{Name: r.Name, Geometry: r.Geometry, Stats: stats}
	}
	a.logger.Info("[aggregator] %d regions, %d suppressed below %d listings", len(out), suppressed, a.minSample)
	return out
}

func (a *Aggregator) summarise(prices, perArea []float64) models.RegionalStatistic {
	stats := models.RegionalStatistic{Count: len(prices)}
	if len(prices) == 0 {
		return stats
	}
	if len(prices) < a.minSample {
		stats.Suppressed = true
		return stats
	}

	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	stats.MeanPrice = optional(Mean(sorted))
	stats.MedianPrice = optional(Quantile(sorted, 0.5))
	stats.Q1 = optional(q1)
	stats.Q3 = optional(q3)
	stats.SemiInterquartileSpread = optional((q3 - q1) / 2)

	if len(perArea) > 0 {
		ppa := append([]float64(nil), perArea...)
		sort.Float64s(ppa)
		stats.MedianPricePerArea = optional(Quantile(ppa, 0.5))
	}
	return stats
}

func optional(v float64) *float64 {
	return &v
}

// Mean returns the arithmetic mean, or NaN for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Quantile returns the p-quantile of an ascending slice using linear
// interpolation between closest ranks (h = (n-1)p). NaN for an empty slice.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}
