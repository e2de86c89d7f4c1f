package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb/geojson"

	"medellin-listings/models"
)

// GeoJSONWriter exports the annotated region collection as a GeoJSON
// FeatureCollection. Each feature carries the region name and its
// statistics; a missing statistic is encoded as null.
type GeoJSONWriter struct {
	dir string
}

func NewGeoJSONWriter(dir string) *GeoJSONWriter {
	return &GeoJSONWriter{dir: dir}
}

// Export writes {dir}/{stem}.geojson and returns its path.
func (w *GeoJSONWriter) Export(report *models.RegionReport) (string, error) {
	data, err := json.MarshalIndent(RegionFeatures(report), "", "  ")
	if err != nil {
		return "", fmt.Errorf("geojson: encode: %w", err)
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("geojson: create output dir: %w", err)
	}
	path := filepath.Join(w.dir, report.FileStem("regional_stats")+".geojson")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("geojson: write %q: %w", path, err)
	}
	return path, nil
}

// RegionFeatures converts a report into a FeatureCollection, one feature
// per region in report order. Run metadata goes into foreign members of
// the collection.
func RegionFeatures(report *models.RegionReport) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"run_id":        report.RunID,
		"generated_at":  report.GeneratedAt.UTC().Format(time.RFC3339),
		"title":         report.Title,
		"property_type": string(report.PropertyType),
		"year":          report.Year,
		"quarter":       report.Quarter,
		"min_sample":    report.MinSample,
	}

	for _, r := range report.Regions {
		f := geojson.NewFeature(r.Geometry)
		s := r.Stats
		f.Properties["name"] = r.Name
		f.Properties["count"] = s.Count
		f.Properties["mean_price"] = nullable(s.MeanPrice)
		f.Properties["median_price"] = nullable(s.MedianPrice)
		f.Properties["q1"] = nullable(s.Q1)
		f.Properties["q3"] = nullable(s.Q3)
		f.Properties["siqr"] = nullable(s.SemiInterquartileSpread)
		f.Properties["median_price_per_m2"] = nullable(s.MedianPricePerArea)
		f.Properties["suppressed"] = s.Suppressed
		fc.Append(f)
	}
	return fc
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
