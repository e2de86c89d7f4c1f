package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"medellin-listings/config"
	"medellin-listings/geo"
	"medellin-listings/models"
	"medellin-listings/storage"
	"medellin-listings/utils"
)

// LoadRegionSet reads the boundary and parent datasets of roi and returns
// the selected regions of interest in boundary-file order.
func LoadRegionSet(roi *config.RegionOfInterest, logger *utils.Logger) ([]*models.BoundaryRegion, error) {
	boundaries, err := geo.LoadBoundaries(roi.Boundaries)
	if err != nil {
		return nil, err
	}
	parents, err := geo.LoadBoundaries(roi.Parent.Dataset)
	if err != nil {
		return nil, err
	}

	regions, err := geo.SelectRegionsOfInterest(boundaries, parents, roi.Parent.Name, roi.AllowList)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: no boundary region lies within %q", ErrInvalidConfig, roi.Parent.Name)
	}
	logger.Info("[geo] %d of %d boundary regions selected for %s", len(regions), len(boundaries), roi.Title)
	return regions, nil
}

// ReportRequest describes one report run.
type ReportRequest struct {
	Files        []string
	Window       ReportWindow
	Regions      []*models.BoundaryRegion
	PropertyType models.PropertyType
	Title        string
	Slug         string
}

// Pipeline runs the five report stages in order: load, filter and
// deduplicate, resolve points, join to regions, aggregate.
type Pipeline struct {
	source     storage.ListingSource
	dedup      *Deduplicator
	resolver   *GeometryResolver
	aggregator *Aggregator
	logger     *utils.Logger
	now        func() time.Time
}

func NewPipeline(source storage.ListingSource, aggregator *Aggregator, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		source:     source,
		dedup:      NewDeduplicator(logger),
		resolver:   NewGeometryResolver(logger),
		aggregator: aggregator,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes every stage and returns the annotated report. Any error
// aborts the run before a report exists.
func (p *Pipeline) Run(req ReportRequest) (*models.RegionReport, error) {
	if len(req.Regions) == 0 {
		return nil, fmt.Errorf("%w: empty region set", ErrInvalidConfig)
	}

	var counts models.StageCounts

	listings, err := p.source.LoadListings(req.Files)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}
	counts.Loaded = len(listings)

	inWindow, badDates := req.Window.Filter(listings, p.logger)
	counts.InWindow, counts.BadDate = len(inWindow), badDates

	unique, missingID := p.dedup.Deduplicate(inWindow)
	counts.Deduplicated, counts.MissingID = len(unique), missingID

	points, excluded := p.resolver.Resolve(unique)
	counts.WithPoint, counts.BadCoordinates = len(points), excluded

	joined := geo.NewJoiner(req.Regions, p.logger).Join(points)
	counts.Joined, counts.Unassigned = joined, len(points)-joined

	regions := p.aggregator.Aggregate(req.Regions, points)

	return &models.RegionReport{
		RunID:        uuid.NewString(),
		GeneratedAt:  p.now(),
		Title:        req.Title,
		Slug:         req.Slug,
		PropertyType: req.PropertyType,
		Year:         req.Window.Year,
		Quarter:      req.Window.Quarter,
		MinSample:    p.aggregator.MinSample(),
		Regions:      regions,
		Listings:     points,
		Counts:       counts,
	}, nil
}
