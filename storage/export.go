package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"medellin-listings/models"
)

// ExportAll runs the exporters built by build into a staging directory
// inside dir and moves their files into dir only once every exporter has
// succeeded. On error dir is left as it was.
func ExportAll(dir string, report *models.RegionReport, build func(dir string) []ReportExporter) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("export: create output dir: %w", err)
	}
	staging, err := os.MkdirTemp(dir, ".staging-")
	if err != nil {
		return nil, fmt.Errorf("export: create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	var staged []string
	for _, exp := range build(staging) {
		path, err := exp.Export(report)
		if err != nil {
			return nil, err
		}
		staged = append(staged, path)
	}

	final := make([]string, 0, len(staged))
	for _, src := range staged {
		dst := filepath.Join(dir, filepath.Base(src))
		if err := os.Rename(src, dst); err != nil {
			for _, done := range final {
				_ = os.Remove(done)
			}
			return nil, fmt.Errorf("export: move %q into place: %w", filepath.Base(src), err)
		}
		final = append(final, dst)
	}
	return final, nil
}
