package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/text/unicode/norm"

	"medellin-listings/models"
)

// ErrParentNotFound is returned when the parent region named in the
// configuration does not exist in the parent dataset.
var ErrParentNotFound = errors.New("parent region not found")

// edgeTolerance absorbs float noise on vertices shared with the parent
// boundary (degrees, roughly a centimetre).
const edgeTolerance = 1e-7

// SelectRegionsOfInterest returns, in boundary order, every named boundary
// region lying within the parent region plus every region whose name is on
// the allow list. Names are compared after Unicode NFC normalisation.
func SelectRegionsOfInterest(boundaries, parents []*models.BoundaryRegion, parentName string, allowList []string) ([]*models.BoundaryRegion, error) {
	parent := findRegion(parents, parentName)
	if parent == nil {
		return nil, fmt.Errorf("%w: %q", ErrParentNotFound, parentName)
	}

	allowed := make(map[string]bool, len(allowList))
	for _, name := range allowList {
		allowed[normName(name)] = true
	}

	var selected []*models.BoundaryRegion
	for _, b := range boundaries {
		if b.Name == "" {
			continue
		}
		if allowed[normName(b.Name)] || Within(b.Geometry, parent.Geometry) {
			selected = append(selected, b)
		}
	}
	return selected, nil
}

func findRegion(regions []*models.BoundaryRegion, name string) *models.BoundaryRegion {
	want := normName(name)
	for _, r := range regions {
		if normName(r.Name) == want {
			return r
		}
	}
	return nil
}

func normName(s string) string {
	return norm.NFC.String(s)
}

// Within reports whether inner lies inside or on the boundary of outer:
// every vertex and edge midpoint of inner is covered by outer, no edge of
// inner crosses an edge of outer, and no hole of outer sits inside inner.
// An empty inner geometry is never within anything.
func Within(inner, outer orb.MultiPolygon) bool {
	if len(inner) == 0 || len(outer) == 0 {
		return false
	}
	if !outer.Bound().Pad(edgeTolerance).Contains(inner.Bound().Min) ||
		!outer.Bound().Pad(edgeTolerance).Contains(inner.Bound().Max) {
		return false
	}

	for _, poly := range inner {
		for _, ring := range poly {
			for i, p := range ring {
				if !covers(outer, p) {
					return false
				}
				if i == 0 {
					continue
				}
				a := ring[i-1]
				if !covers(outer, orb.Point{(a[0] + p[0]) / 2, (a[1] + p[1]) / 2}) {
					return false
				}
				if crossesBoundary(a, p, outer) {
					return false
				}
			}
		}
	}

	for _, opoly := range outer {
		if len(opoly) < 2 {
			continue
		}
		for _, hole := range opoly[1:] {
			for _, v := range hole {
				if strictlyInside(inner, v) {
					return false
				}
			}
		}
	}
	return true
}

func covers(mp orb.MultiPolygon, p orb.Point) bool {
	return planar.MultiPolygonContains(mp, p) || planar.DistanceFrom(mp, p) <= edgeTolerance
}

func strictlyInside(mp orb.MultiPolygon, p orb.Point) bool {
	for _, poly := range mp {
		if planar.PolygonContains(poly, p) && planar.DistanceFrom(poly, p) > edgeTolerance {
			return true
		}
	}
	return false
}

// crossesBoundary reports whether segment ab properly crosses any ring
// segment of mp. Touching and collinear overlap do not count.
func crossesBoundary(a, b orb.Point, mp orb.MultiPolygon) bool {
	seg := orb.Bound{Min: a, Max: a}.Extend(b)
	for _, poly := range mp {
		for _, ring := range poly {
			for i := 1; i < len(ring); i++ {
				c, d := ring[i-1], ring[i]
				if !seg.Intersects(orb.Bound{Min: c, Max: c}.Extend(d)) {
					continue
				}
				if side(c, d, a)*side(c, d, b) < 0 && side(a, b, c)*side(a, b, d) < 0 {
					return true
				}
			}
		}
	}
	return false
}

// side is the sign of p's offset from the line through a and b, with
// offsets within edgeTolerance counted as on the line.
func side(a, b, p orb.Point) int {
	dx, dy := b[0]-a[0], b[1]-a[1]
	length := math.Hypot(dx, dy)
	if length == 0 {
		return 0
	}
	dist := (dx*(p[1]-a[1]) - dy*(p[0]-a[0])) / length
	switch {
	case dist > edgeTolerance:
		return 1
	case dist < -edgeTolerance:
		return -1
	default:
		return 0
	}
}
