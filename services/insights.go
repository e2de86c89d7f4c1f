package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"medellin-listings/models"
)

// InsightService summarises a region report for the console.
type InsightService struct {
	out     io.Writer
	printer *message.Printer
}

// NewInsightService prints to out with Colombian number grouping.
func NewInsightService(out io.Writer) *InsightService {
	return &InsightService{out: out, printer: message.NewPrinter(language.MustParse("es-CO"))}
}

func (s *InsightService) Generate(r *models.RegionReport) *models.InsightReport {
	ins := &models.InsightReport{
		Title:        r.Title,
		Window:       fmt.Sprintf("Q%d %d", r.Quarter, r.Year),
		PropertyType: r.PropertyType,
		Counts:       r.Counts,
		Regions:      len(r.Regions),
	}

	var ranked []models.RegionRank
	for _, region := range r.Regions {
		st := region.Stats
		switch {
		case st.Count == 0:
			ins.EmptyRegions++
		case st.Suppressed:
			ins.SuppressedRegions++
		}
		if st.Count > 0 {
			ins.ListingsByRegion = append(ins.ListingsByRegion, models.RegionRank{Name: region.Name, Count: st.Count})
		}
		if st.HasMedian() {
			ins.RegionsWithData++
			ranked = append(ranked, models.RegionRank{Name: region.Name, Value: *st.MedianPrice, Count: st.Count})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Value > ranked[j].Value
	})
	if len(ranked) > 0 {
		ins.MostExpensive = &ranked[0]
		ins.LeastExpensive = &ranked[len(ranked)-1]
	}
	if len(ranked) > 5 {
		ins.TopByMedian = ranked[:5]
	} else {
		ins.TopByMedian = ranked
	}

	sort.SliceStable(ins.ListingsByRegion, func(i, j int) bool {
		return ins.ListingsByRegion[i].Count > ins.ListingsByRegion[j].Count
	})
	return ins
}

func (s *InsightService) Print(r *models.InsightReport) {
	w := s.out
	sep := strings.Repeat("═", 58)
	thin := strings.Repeat("─", 58)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  %s · %s · %s\033[0m\n", strings.ToUpper(r.Title), r.PropertyType, r.Window)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Pipeline
	c := r.Counts
	fmt.Fprintf(w, "\033[1;33m  Pipeline\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Loaded rows            : \033[1m%d\033[0m\n", c.Loaded)
	fmt.Fprintf(w, "  In window              : \033[1m%d\033[0m (bad dates %d)\n", c.InWindow, c.BadDate)
	fmt.Fprintf(w, "  Unique properties      : \033[1m%d\033[0m (missing id %d)\n", c.Deduplicated, c.MissingID)
	fmt.Fprintf(w, "  With coordinates       : \033[1m%d\033[0m (excluded %d)\n", c.WithPoint, c.BadCoordinates)
	fmt.Fprintf(w, "  Inside a region        : \033[1m%d\033[0m (outside %d)\n", c.Joined, c.Unassigned)
	fmt.Fprintln(w)

	// Regions
	fmt.Fprintf(w, "\033[1;33m  Regions\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total       : \033[1m%d\033[0m\n", r.Regions)
	fmt.Fprintf(w, "  With prices : \033[1m%d\033[0m\n", r.RegionsWithData)
	fmt.Fprintf(w, "  Suppressed  : \033[1m%d\033[0m\n", r.SuppressedRegions)
	fmt.Fprintf(w, "  No listings : \033[1m%d\033[0m\n", r.EmptyRegions)
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Median Sale Price\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  Highest : %-28s \033[1;31m$%s\033[0m\n", truncate(r.MostExpensive.Name, 28), s.cop(r.MostExpensive.Value))
		fmt.Fprintf(w, "  Lowest  : %-28s \033[1;32m$%s\033[0m\n", truncate(r.LeastExpensive.Name, 28), s.cop(r.LeastExpensive.Value))
		fmt.Fprintln(w)
	}

	// ── TOP 5 BY MEDIAN ──────────────────────────────────────────────────
	fmt.Fprintf(w, "\033[1;33m  Top 5 Regions by Median Price\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopByMedian) == 0 {
		fmt.Fprintf(w, "  No region has enough listings\n")
	} else {
		for i, rr := range r.TopByMedian {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-34s \033[1;32m$%s\033[0m (n=%d)\n",
				i+1, truncate(rr.Name, 32), s.cop(rr.Value), rr.Count)
		}
	}
	fmt.Fprintln(w)

	// Listings by Region
	fmt.Fprintf(w, "\033[1;33m  Listings by Region\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsByRegion) == 0 {
		fmt.Fprintf(w, "  No listings inside the region set\n")
	} else {
		for _, rr := range r.ListingsByRegion {
			bar := strings.Repeat("█", min(rr.Count, 40))
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(rr.Name, 28), bar, rr.Count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func (s *InsightService) cop(v float64) string {
	return s.printer.Sprintf("%.0f", v)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
