package geo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/text/encoding/charmap"

	"medellin-listings/config"
	"medellin-listings/models"
)

// LoadBoundaries reads a named-polygon dataset (ESRI shapefile or GeoJSON)
// and returns its regions in file order with geometries in EPSG:4326.
// Regions keep whatever name the file holds, including an empty one.
func LoadBoundaries(ds config.Dataset) ([]*models.BoundaryRegion, error) {
	switch strings.ToLower(filepath.Ext(ds.Path)) {
	case ".shp":
		return loadShapefile(ds)
	case ".geojson", ".json":
		return loadGeoJSON(ds)
	default:
		return nil, fmt.Errorf("geo: %q: unknown boundary format", ds.Path)
	}
}

func loadShapefile(ds config.Dataset) ([]*models.BoundaryRegion, error) {
	crs, err := shapefileCRS(ds.Path, ds.CRS)
	if err != nil {
		return nil, err
	}

	r, err := shp.Open(ds.Path)
	if err != nil {
		return nil, fmt.Errorf("geo: open shapefile %q: %w", ds.Path, err)
	}
	defer r.Close()

	nameIdx := -1
	for i, f := range r.Fields() {
		if strings.EqualFold(cleanAttr(f.String()), ds.NameField) {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("geo: %q has no %q attribute", ds.Path, ds.NameField)
	}

	decode := func(s string) string { return s }
	if ds.Encoding == "latin1" {
		dec := charmap.ISO8859_1.NewDecoder()
		decode = func(s string) string {
			out, err := dec.String(s)
			if err != nil {
				return s
			}
			return out
		}
	}

	var regions []*models.BoundaryRegion
	for r.Next() {
		n, shape := r.Shape()
		mp, err := shapeToMultiPolygon(shape)
		if err != nil {
			return nil, fmt.Errorf("geo: %q record %d: %w", ds.Path, n, err)
		}
		if mp, err = ToWGS84(mp, crs); err != nil {
			return nil, fmt.Errorf("geo: %q: %w", ds.Path, err)
		}
		regions = append(regions, &models.BoundaryRegion{
			Name:     strings.TrimSpace(decode(cleanAttr(r.ReadAttribute(n, nameIdx)))),
			Geometry: mp,
		})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("geo: read shapefile %q: %w", ds.Path, err)
	}
	return regions, nil
}

func cleanAttr(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}

// shapeToMultiPolygon groups shapefile rings into polygons. Outer rings are
// clockwise and each following counter-clockwise ring is a hole of the
// last outer ring.
func shapeToMultiPolygon(shape shp.Shape) (orb.MultiPolygon, error) {
	var (
		parts  []int32
		points []shp.Point
	)
	switch s := shape.(type) {
	case *shp.Polygon:
		parts, points = s.Parts, s.Points
	case *shp.PolygonZ:
		parts, points = s.Parts, s.Points
	case *shp.PolygonM:
		parts, points = s.Parts, s.Points
	case *shp.Null:
		return orb.MultiPolygon{}, nil
	default:
		return nil, fmt.Errorf("shape type %T is not a polygon", shape)
	}

	var mp orb.MultiPolygon
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || end > int32(len(points)) {
			return nil, fmt.Errorf("corrupt part offsets")
		}

		ring := make(orb.Ring, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		if len(ring) < 3 {
			continue
		}

		if ring.Orientation() == orb.CW || len(mp) == 0 {
			mp = append(mp, orb.Polygon{ring})
			continue
		}
		last := len(mp) - 1
		mp[last] = append(mp[last], ring)
	}
	return mp, nil
}

func loadGeoJSON(ds config.Dataset) ([]*models.BoundaryRegion, error) {
	crs := WGS84
	if ds.CRS != "" {
		var err error
		if crs, err = ParseCRS(ds.CRS); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(ds.Path)
	if err != nil {
		return nil, fmt.Errorf("geo: read %q: %w", ds.Path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("geo: parse %q: %w", ds.Path, err)
	}

	regions := make([]*models.BoundaryRegion, 0, len(fc.Features))
	for i, f := range fc.Features {
		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			mp = g
		case nil:
			mp = orb.MultiPolygon{}
		default:
			return nil, fmt.Errorf("geo: %q feature %d: geometry %s is not a polygon", ds.Path, i, g.GeoJSONType())
		}
		if mp, err = ToWGS84(mp, crs); err != nil {
			return nil, fmt.Errorf("geo: %q: %w", ds.Path, err)
		}
		regions = append(regions, &models.BoundaryRegion{
			Name:     strings.TrimSpace(f.Properties.MustString(ds.NameField, "")),
			Geometry: mp,
		})
	}
	return regions, nil
}
