package metrocuadrado

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"medellin-listings/config"
	"medellin-listings/models"
	"medellin-listings/scraper"
	"medellin-listings/utils"
)

const baseURL = "https://www.metrocuadrado.com"

// segment describes one listing family on the portal.
type segment struct {
	path         string
	cardSelector string
	scroll       bool
	extract      func(page, extractionDate string) (*models.RawListing, error)
}

var segments = map[models.PropertyType]segment{
	models.Apartments: {
		path:         "apartaestudio-apartamento",
		cardSelector: ".card-header",
		extract:      ExtractApartment,
	},
	models.Offices: {
		path:         "oficina",
		cardSelector: ".property-card__content",
		scroll:       true,
		extract:      ExtractOffice,
	},
}

// Scraper drives headless Chrome through a metrocuadrado.com sale index
// and its detail pages.
type Scraper struct {
	cfg        *config.Config
	logger     *utils.Logger
	seg        segment
	visitedURL *utils.URLSet
	retry      *utils.RetryConfig
	now        func() time.Time
}

// New creates a Scraper for apartments or offices.
func New(cfg *config.Config, pt models.PropertyType, logger *utils.Logger) (*Scraper, error) {
	seg, ok := segments[pt]
	if !ok {
		return nil, fmt.Errorf("metrocuadrado: unsupported property type %q", pt)
	}
	return &Scraper{
		cfg:        cfg,
		logger:     logger,
		seg:        seg,
		visitedURL: utils.NewURLSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		now: time.Now,
	}, nil
}

// IndexURL is the sale index for the scraper's segment and city.
func (s *Scraper) IndexURL() string {
	return fmt.Sprintf("%s/%s/venta/%s/", baseURL, s.seg.path, s.cfg.City)
}

var _ scraper.Scraper = (*Scraper)(nil)

// Scrape collects the index links, then extracts every detail page on the
// worker pool. Results keep index order; failed pages are logged and skipped.
func (s *Scraper) Scrape(ctx context.Context) ([]*models.RawListing, error) {
	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Info("[metrocuadrado] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(s.cfg.UserAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("metrocuadrado: start browser: %w", err)
	}

	links, err := s.collectLinks(browserCtx)
	if err != nil {
		return nil, err
	}
	if limit := s.cfg.ListingLimit; limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	s.logger.Info("[metrocuadrado] %d listing links to visit", len(links))

	today := s.now().Format(scraper.DateLayout)
	results := make([]*models.RawListing, len(links))
	pool := utils.NewWorkerPoolContext(ctx, s.cfg.MaxConcurrency, s.cfg.RateLimitMs)

	for i, link := range links {
		if !s.visitedURL.Add(link) {
			s.logger.Debug("[metrocuadrado] Skipping duplicate: %s", link)
			continue
		}
		i, link := i, link
		pool.Submit(func() {
			listing, err := s.scrapeDetail(browserCtx, link, today)
			if err != nil {
				s.logger.Warn("[metrocuadrado] Detail page failed for %s: %v", link, err)
				return
			}
			s.logger.Debug("[metrocuadrado] %d/%d extracted %s", i+1, len(links), listing.PropertyID)
			results[i] = listing
		})
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("metrocuadrado: scrape cancelled: %w", err)
	}

	listings := make([]*models.RawListing, 0, len(results))
	for _, l := range results {
		if l != nil {
			listings = append(listings, l)
		}
	}
	s.logger.Info("[metrocuadrado] Scrape complete: %d of %d detail pages extracted", len(listings), len(links))
	return listings, nil
}

// collectLinks loads the index page and waits for the listing cards.
func (s *Scraper) collectLinks(browserCtx context.Context) ([]string, error) {
	indexURL := s.IndexURL()
	s.logger.Info("[metrocuadrado] Loading index %s", indexURL)

	var page string
	err := s.retry.DoContext(browserCtx, "index-page", func(ctx context.Context) error {
		tabCtx, cancel := chromedp.NewContext(ctx)
		defer cancel()
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.cfg.ListTimeout)
		defer cancelTimeout()

		actions := []chromedp.Action{chromedp.Navigate(indexURL)}
		if s.seg.scroll {
			actions = append(actions, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
		}
		actions = append(actions,
			chromedp.WaitReady(s.seg.cardSelector, chromedp.ByQuery),
			chromedp.OuterHTML("html", &page, chromedp.ByQuery),
		)
		if err := chromedp.Run(tabCtx, actions...); err != nil {
			return fmt.Errorf("chromedp index page: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("metrocuadrado: %w", err)
	}

	return ExtractListingLinks(page, s.seg.cardSelector, baseURL)
}

// scrapeDetail opens one listing in its own tab and extracts its payload.
func (s *Scraper) scrapeDetail(browserCtx context.Context, link, today string) (*models.RawListing, error) {
	var page string
	err := s.retry.DoContext(browserCtx, "detail-page", func(ctx context.Context) error {
		tabCtx, cancel := chromedp.NewContext(ctx)
		defer cancel()
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.cfg.PageTimeout)
		defer cancelTimeout()

		if err := chromedp.Run(tabCtx,
			chromedp.Navigate(link),
			chromedp.OuterHTML("html", &page, chromedp.ByQuery),
		); err != nil {
			return fmt.Errorf("chromedp detail page: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.seg.extract(page, today)
}

// findChromeBinary locates Chrome/Chromium, preferring the configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
