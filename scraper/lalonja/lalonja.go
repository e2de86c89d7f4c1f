package lalonja

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"

	"medellin-listings/config"
	"medellin-listings/models"
	"medellin-listings/scraper"
	"medellin-listings/utils"
)

// BaseURL is the house sale index on lalonjapropiedadraiz.com.
const BaseURL = "https://www.lalonjapropiedadraiz.com/inmuebles/Venta/clases_Casa"

const (
	houseType = "Casa"
	pacing    = time.Second
)

// Scraper collects houses for sale over plain HTTP, one request per second.
type Scraper struct {
	cfg        *config.Config
	logger     *utils.Logger
	client     *retryablehttp.Client
	base       string
	visitedURL *utils.URLSet
	pacing     time.Duration
	now        func() time.Time
}

// New creates a Scraper for the live site.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return NewWithBaseURL(BaseURL, cfg, logger)
}

// NewWithBaseURL creates a Scraper rooted at base.
func NewWithBaseURL(base string, cfg *config.Config, logger *utils.Logger) *Scraper {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.RetryMax = cfg.MaxRetries
	rc.HTTPClient.Timeout = cfg.PageTimeout
	rc.Logger = clientLogger{logger}

	return &Scraper{
		cfg:        cfg,
		logger:     logger,
		client:     rc,
		base:       base,
		visitedURL: utils.NewURLSet(),
		pacing:     pacing,
		now:        time.Now,
	}
}

var _ scraper.Scraper = (*Scraper)(nil)

// Scrape walks every index page, then every listing. Listings missing any
// field or priced as a range are dropped.
func (s *Scraper) Scrape(ctx context.Context) ([]*models.RawListing, error) {
	first, err := s.fetch(ctx, s.base)
	if err != nil {
		return nil, err
	}
	total, err := TotalPages(first)
	if err != nil {
		return nil, err
	}
	pages := PageURLs(s.base, total)
	s.logger.Info("[lalonja] %d index pages", len(pages))

	refs := s.collectRefs(ctx, first, pages)
	if limit := s.cfg.ListingLimit; limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	s.logger.Info("[lalonja] %d listing links to visit", len(refs))

	today := s.now().Format(scraper.DateLayout)
	results := make([]*models.RawListing, len(refs))
	pool := utils.NewWorkerPoolContext(ctx, s.cfg.MaxConcurrency, int(s.pacing/time.Millisecond))
	for i, ref := range refs {
		i, ref := i, ref
		pool.Submit(func() {
			doc, err := s.fetch(ctx, ref.Link)
			if err != nil {
				s.logger.Warn("[lalonja] Listing failed for %s: %v", ref.Link, err)
				return
			}
			d := ParseDetail(doc)
			if ref.Code == "" || !d.Complete() {
				s.logger.Debug("[lalonja] Incomplete listing skipped: %s", ref.Link)
				return
			}
			results[i] = toRawListing(ref, d, today)
		})
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("lalonja: scrape cancelled: %w", err)
	}

	listings := make([]*models.RawListing, 0, len(results))
	for _, l := range results {
		if l != nil {
			listings = append(listings, l)
		}
	}
	s.logger.Info("[lalonja] Scrape complete: %d of %d listings kept", len(listings), len(refs))
	return listings, nil
}

// collectRefs gathers listing links from every index page in page order.
// first is the already fetched page one.
func (s *Scraper) collectRefs(ctx context.Context, first *goquery.Document, pages []string) []ListingRef {
	perPage := make([][]ListingRef, len(pages))
	perPage[0] = ListingLinks(first, s.base)

	pool := utils.NewWorkerPoolContext(ctx, s.cfg.MaxConcurrency, int(s.pacing/time.Millisecond))
	for i := 1; i < len(pages); i++ {
		i := i
		pool.Submit(func() {
			doc, err := s.fetch(ctx, pages[i])
			if err != nil {
				s.logger.Warn("[lalonja] Index page %s failed: %v", pages[i], err)
				return
			}
			perPage[i] = ListingLinks(doc, s.base)
		})
	}
	pool.Wait()

	var refs []ListingRef
	for _, page := range perPage {
		for _, ref := range page {
			if !s.visitedURL.Add(ref.Link) {
				continue
			}
			refs = append(refs, ref)
		}
	}
	return refs
}

func (s *Scraper) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("lalonja: build request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lalonja: get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("lalonja: get %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lalonja: parse %s: %w", url, err)
	}
	return doc, nil
}

func toRawListing(ref ListingRef, d Detail, today string) *models.RawListing {
	return &models.RawListing{
		PropertyID:     ref.Code,
		PropertyType:   houseType,
		SalePrice:      d.Price,
		Area:           d.Area,
		Rooms:          d.Rooms,
		Bathrooms:      d.Bathrooms,
		Garages:        d.Garages,
		City:           d.Municipality,
		Neighborhood:   d.Neighborhood,
		Link:           ref.Link,
		ExtractionDate: today,
	}
}

// clientLogger routes the HTTP client's retry messages to debug output.
type clientLogger struct {
	logger *utils.Logger
}

func (l clientLogger) Printf(format string, args ...interface{}) {
	l.logger.Debug("[lalonja] "+format, args...)
}
