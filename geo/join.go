package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"medellin-listings/models"
	"medellin-listings/utils"
)

// Joiner assigns points to the regions of a region-of-interest set.
type Joiner struct {
	regions []*models.BoundaryRegion
	bounds  []orb.Bound
	logger  *utils.Logger
}

// NewJoiner prepares a joiner over regions. Region order decides which
// region wins when polygons overlap.
func NewJoiner(regions []*models.BoundaryRegion, logger *utils.Logger) *Joiner {
	bounds := make([]orb.Bound, len(regions))
	for i, r := range regions {
		bounds[i] = r.Bound()
	}
	return &Joiner{regions: regions, bounds: bounds, logger: logger}
}

// Locate returns the name of the first region containing p, or "".
func (j *Joiner) Locate(p orb.Point) string {
	for i, r := range j.regions {
		if !j.bounds[i].Contains(p) {
			continue
		}
		if planar.MultiPolygonContains(r.Geometry, p) {
			return r.Name
		}
	}
	return ""
}

// Join sets Region on every listing and returns how many were matched.
// Listings outside all regions keep an empty Region.
func (j *Joiner) Join(listings []*models.GeoListing) int {
	joined := 0
	for _, l := range listings {
		l.Region = j.Locate(orb.Point{l.Point.Lon, l.Point.Lat})
		if l.Region == "" {
			j.logger.Debug("[geo] %s (%.6f, %.6f) is outside every region", l.PropertyID, l.Point.Lon, l.Point.Lat)
			continue
		}
		joined++
	}
	j.logger.Info("[geo] Joined %d/%d listings to %d regions", joined, len(listings), len(j.regions))
	return joined
}
