package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"medellin-listings/models"
)

// RegionHeader is the column layout of the regional statistics CSV.
var RegionHeader = []string{
	"region", "count", "mean_price", "median_price", "q1", "q3", "siqr",
	"median_price_per_m2", "suppressed",
}

// RegionCSVWriter exports the per-region statistics of a report as CSV.
// Missing statistics are written as empty cells.
type RegionCSVWriter struct {
	dir string
}

func NewRegionCSVWriter(dir string) *RegionCSVWriter {
	return &RegionCSVWriter{dir: dir}
}

// Export writes {dir}/{stem}.csv and returns its path.
func (w *RegionCSVWriter) Export(report *models.RegionReport) (string, error) {
	path := filepath.Join(w.dir, report.FileStem("regional_stats")+".csv")
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(RegionHeader); err != nil {
		return "", fmt.Errorf("csv: write header: %w", err)
	}
	for _, r := range report.Regions {
		s := r.Stats
		row := []string{
			r.Name,
			strconv.Itoa(s.Count),
			formatOptional(s.MeanPrice),
			formatOptional(s.MedianPrice),
			formatOptional(s.Q1),
			formatOptional(s.Q3),
			formatOptional(s.SemiInterquartileSpread),
			formatOptional(s.MedianPricePerArea),
			strconv.FormatBool(s.Suppressed),
		}
		if err := cw.Write(row); err != nil {
			return "", fmt.Errorf("csv: write row %q: %w", r.Name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("csv: flush %q: %w", path, err)
	}
	return path, nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
