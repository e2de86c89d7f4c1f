package geo

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// CRS identifies the coordinate reference system of a boundary dataset.
type CRS string

const (
	WGS84       CRS = "EPSG:4326"
	WebMercator CRS = "EPSG:3857"
)

// ErrUnsupportedCRS is returned for any CRS other than WGS84 or Web Mercator.
var ErrUnsupportedCRS = errors.New("unsupported CRS")

// ParseCRS normalises a user supplied CRS name.
func ParseCRS(s string) (CRS, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EPSG:4326", "4326", "WGS84", "WGS 84", "CRS84", "OGC:CRS84", "URN:OGC:DEF:CRS:OGC:1.3:CRS84":
		return WGS84, nil
	case "EPSG:3857", "3857", "EPSG:900913", "900913":
		return WebMercator, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCRS, s)
	}
}

// DetectPRJ identifies the CRS described by the WKT of a shapefile .prj.
func DetectPRJ(wkt string) (CRS, error) {
	w := strings.ToUpper(wkt)
	switch {
	case strings.HasPrefix(w, "PROJCS"):
		if strings.Contains(w, "WEB_MERCATOR") || strings.Contains(w, "PSEUDO-MERCATOR") ||
			strings.Contains(w, "POPULAR VISUALISATION") || strings.Contains(w, `"EPSG","3857"`) {
			return WebMercator, nil
		}
	case strings.HasPrefix(w, "GEOGCS"):
		if strings.Contains(w, "WGS_1984") || strings.Contains(w, "WGS 84") || strings.Contains(w, "WGS84") {
			return WGS84, nil
		}
	}
	name := wkt
	if i := strings.Index(name, ","); i > 0 {
		name = name[:i]
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedCRS, name)
}

// shapefileCRS resolves the CRS of a shapefile: the configured value wins,
// then the sidecar .prj, then WGS84 when neither exists.
func shapefileCRS(shpPath, configured string) (CRS, error) {
	if configured != "" {
		return ParseCRS(configured)
	}
	prj, err := os.ReadFile(strings.TrimSuffix(shpPath, ".shp") + ".prj")
	if errors.Is(err, os.ErrNotExist) {
		return WGS84, nil
	}
	if err != nil {
		return "", fmt.Errorf("geo: read projection of %q: %w", shpPath, err)
	}
	return DetectPRJ(strings.TrimSpace(string(prj)))
}

// ToWGS84 converts mp to longitude/latitude in place and returns it.
func ToWGS84(mp orb.MultiPolygon, from CRS) (orb.MultiPolygon, error) {
	switch from {
	case WGS84:
		return mp, nil
	case WebMercator:
		return project.MultiPolygon(mp, project.Mercator.ToWGS84), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCRS, from)
	}
}
