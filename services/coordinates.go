package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mmcloughlin/geohash"
	"gopkg.in/yaml.v2"

	"medellin-listings/models"
	"medellin-listings/utils"
)

// GeohashPrecision is the number of characters stored per listing (~5 m).
const GeohashPrecision = 9

var errNoCoordinates = errors.New("empty coordinates")

// ParseCoordinates decodes the coordinates column. Both the Python dict
// literal the scrapers write ({'lon': -75.5, 'lat': 6.2}) and JSON are
// accepted; values may be numbers or numeric strings.
func ParseCoordinates(raw string) (models.Coordinates, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Coordinates{}, errNoCoordinates
	}

	// A Python dict literal is a valid YAML flow mapping, and so is JSON.
	var m map[string]interface{}
	if err := yaml.Unmarshal([]byte(raw), &m); err != nil {
		return models.Coordinates{}, fmt.Errorf("coordinates %q: %w", raw, err)
	}

	lon, err := coordinateValue(m, "lon")
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("coordinates %q: %w", raw, err)
	}
	lat, err := coordinateValue(m, "lat")
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("coordinates %q: %w", raw, err)
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return models.Coordinates{}, fmt.Errorf("coordinates %q: out of range", raw)
	}
	return models.Coordinates{Lon: lon, Lat: lat}, nil
}

func coordinateValue(m map[string]interface{}, key string) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%s is missing", key)
	}

	var f float64
	switch x := v.(type) {
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint64:
		f = float64(x)
	case float64:
		f = x
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(x), 64); err != nil {
			return 0, fmt.Errorf("%s is not a number: %q", key, x)
		}
	default:
		return 0, fmt.Errorf("%s has unexpected type %T", key, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s is not finite", key)
	}
	return f, nil
}

// GeometryResolver turns listings into point listings.
type GeometryResolver struct {
	logger *utils.Logger
}

func NewGeometryResolver(logger *utils.Logger) *GeometryResolver {
	return &GeometryResolver{logger: logger}
}

// Resolve returns a GeoListing for every listing with usable coordinates.
// Unparsable coordinates and the (0,0) "not captured" marker are skipped
// and counted in excluded. The input slice is left untouched.
func (r *GeometryResolver) Resolve(listings []*models.Listing) (resolved []*models.GeoListing, excluded int) {
	for _, l := range listings {
		c, err := ParseCoordinates(l.Coordinates)
		if err != nil {
			excluded++
			r.logger.Debug("[geometry] %s (%s row %d): %v", l.PropertyID, l.Source, l.Row, err)
			continue
		}
		if c.IsZero() {
			excluded++
			r.logger.Debug("[geometry] %s (%s row %d): zero coordinates", l.PropertyID, l.Source, l.Row)
			continue
		}
		resolved = append(resolved, &models.GeoListing{
			Listing: l,
			Point:   c,
			Geohash: geohash.EncodeWithPrecision(c.Lat, c.Lon, GeohashPrecision),
		})
	}
	r.logger.Info("[geometry] %d/%d listings have a usable point", len(resolved), len(listings))
	return resolved, excluded
}
