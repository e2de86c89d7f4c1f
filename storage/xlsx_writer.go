package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"medellin-listings/models"
)

const (
	RegionsSheet  = "Regions"
	ListingsSheet = "Listings"
)

var listingsSheetHeader = []string{
	"propertyId", "salePrice", "area", "price_per_m2", "Extraction Date",
	"lon", "lat", "geohash", "region", "source",
}

// XLSXReportWriter exports a report as a workbook with one sheet of
// regional statistics and one sheet of the joined listings behind them.
type XLSXReportWriter struct {
	dir string
}

func NewXLSXReportWriter(dir string) *XLSXReportWriter {
	return &XLSXReportWriter{dir: dir}
}

// Export writes {dir}/{stem}.xlsx and returns its path.
func (w *XLSXReportWriter) Export(report *models.RegionReport) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), RegionsSheet); err != nil {
		return "", fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ListingsSheet); err != nil {
		return "", fmt.Errorf("xlsx: add sheet: %w", err)
	}

	if err := writeRegionsSheet(f, report); err != nil {
		return "", err
	}
	if err := writeListingsSheet(f, report); err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("xlsx: create output dir: %w", err)
	}
	path := filepath.Join(w.dir, report.FileStem("report")+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("xlsx: save %q: %w", path, err)
	}
	return path, nil
}

func writeRegionsSheet(f *excelize.File, report *models.RegionReport) error {
	if err := setRow(f, RegionsSheet, 1, stringsToRow(RegionHeader)); err != nil {
		return err
	}
	for i, r := range report.Regions {
		s := r.Stats
		row := []any{
			r.Name,
			s.Count,
			nullable(s.MeanPrice),
			nullable(s.MedianPrice),
			nullable(s.Q1),
			nullable(s.Q3),
			nullable(s.SemiInterquartileSpread),
			nullable(s.MedianPricePerArea),
			s.Suppressed,
		}
		if err := setRow(f, RegionsSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeListingsSheet(f *excelize.File, report *models.RegionReport) error {
	if err := setRow(f, ListingsSheet, 1, stringsToRow(listingsSheetHeader)); err != nil {
		return err
	}
	for i, l := range report.Listings {
		var ppa any
		if v, ok := l.PricePerArea(); ok {
			ppa = v
		}
		row := []any{
			l.PropertyID,
			l.SalePrice,
			l.Area,
			ppa,
			l.ExtractionDate.Format("2006-01-02"),
			l.Point.Lon,
			l.Point.Lat,
			l.Geohash,
			l.Region,
			filepath.Base(l.Source),
		}
		if err := setRow(f, ListingsSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("xlsx: %s row %d: %w", sheet, row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("xlsx: write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func stringsToRow(ss []string) []any {
	row := make([]any, len(ss))
	for i, s := range ss {
		row[i] = s
	}
	return row
}
