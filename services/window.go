package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"medellin-listings/models"
	"medellin-listings/utils"
)

// ErrInvalidConfig marks a report parameter rejected before any processing.
var ErrInvalidConfig = errors.New("invalid report configuration")

// ReportWindow is the calendar quarter a report covers.
type ReportWindow struct {
	Year    int
	Quarter int
}

// NewReportWindow validates year and quarter.
func NewReportWindow(year, quarter int) (ReportWindow, error) {
	if quarter < 1 || quarter > 4 {
		return ReportWindow{}, fmt.Errorf("%w: quarter must be 1-4, got %d", ErrInvalidConfig, quarter)
	}
	if year < 1 {
		return ReportWindow{}, fmt.Errorf("%w: year must be positive, got %d", ErrInvalidConfig, year)
	}
	return ReportWindow{Year: year, Quarter: quarter}, nil
}

// Months returns the first and last month of the quarter.
func (w ReportWindow) Months() (first, last time.Month) {
	first = time.Month(3*(w.Quarter-1) + 1)
	return first, first + 2
}

// Contains reports whether t falls inside the quarter. The zero time never does.
func (w ReportWindow) Contains(t time.Time) bool {
	if t.IsZero() || t.Year() != w.Year {
		return false
	}
	first, last := w.Months()
	return t.Month() >= first && t.Month() <= last
}

func (w ReportWindow) String() string {
	return fmt.Sprintf("Q%d %d", w.Quarter, w.Year)
}

// Filter keeps the listings observed inside the window, in input order.
// badDates counts rows whose extraction date could not be parsed.
func (w ReportWindow) Filter(listings []*models.Listing, logger *utils.Logger) (kept []*models.Listing, badDates int) {
	for _, l := range listings {
		if l.ExtractionDate.IsZero() {
			badDates++
			logger.Debug("[window] %s row %d: unparsable extraction date", l.Source, l.Row)
			continue
		}
		if w.Contains(l.ExtractionDate) {
			kept = append(kept, l)
		}
	}
	logger.Info("[window] %s: %d/%d listings in window (%d bad dates)", w, len(kept), len(listings), badDates)
	return kept, badDates
}

// Deduplicator collapses repeated observations of the same property.
type Deduplicator struct {
	logger *utils.Logger
}

func NewDeduplicator(logger *utils.Logger) *Deduplicator {
	return &Deduplicator{logger: logger}
}

// Deduplicate keeps one listing per PropertyID: the one with the latest
// extraction date. When several share that date the one loaded first wins.
// Survivors keep their input order. Listings without an id are dropped and
// counted in missingID.
func (d *Deduplicator) Deduplicate(listings []*models.Listing) (unique []*models.Listing, missingID int) {
	order := make([]int, 0, len(listings))
	for i, l := range listings {
		if l.PropertyID == "" {
			missingID++
			d.logger.Debug("[dedup] %s row %d: missing propertyId", l.Source, l.Row)
			continue
		}
		order = append(order, i)
	}

	sort.SliceStable(order, func(a, b int) bool {
		return listings[order[a]].ExtractionDate.After(listings[order[b]].ExtractionDate)
	})

	seen := make(map[string]bool, len(order))
	keep := make([]bool, len(listings))
	for _, i := range order {
		id := listings[i].PropertyID
		if seen[id] {
			continue
		}
		seen[id] = true
		keep[i] = true
	}

	for i, l := range listings {
		if keep[i] {
			unique = append(unique, l)
		}
	}
	d.logger.Info("[dedup] %d unique properties from %d observations", len(unique), len(listings))
	return unique, missingID
}
