package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"medellin-listings/config"
	"medellin-listings/models"
	"medellin-listings/render"
	"medellin-listings/scraper"
	"medellin-listings/scraper/lalonja"
	"medellin-listings/scraper/metrocuadrado"
	"medellin-listings/services"
	"medellin-listings/storage"
	"medellin-listings/utils"
)

const usage = `usage:
  medellin-listings scrape [-type Apartments|Houses|Offices] [-city medellin] [-limit N]
  medellin-listings report [-type T] [-year Y] [-quarter Q] [-regions file.yaml]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logger := utils.NewLogger()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Configuration rejected: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "scrape":
		err = runScrape(ctx, cfg, os.Args[2:])
	case "report":
		err = runReport(cfg, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel)).Error("%s failed: %v", os.Args[1], err)
		stop()
		os.Exit(1)
	}
}

func runScrape(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	fs.StringVar(&cfg.PropertyType, "type", cfg.PropertyType, "property type: Apartments, Houses or Offices")
	fs.StringVar(&cfg.City, "city", cfg.City, "city segment of the portal URL")
	fs.IntVar(&cfg.ListingLimit, "limit", cfg.ListingLimit, "maximum listings to visit, 0 for all")
	_ = fs.Parse(args)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))
	pt := models.PropertyType(cfg.PropertyType)
	logger.Info("=== Scraping %s for sale in %s ===", pt, cfg.City)
	logger.Info("Config: concurrency %d | rate %dms | retries %d | limit %d",
		cfg.MaxConcurrency, cfg.RateLimitMs, cfg.MaxRetries, cfg.ListingLimit)

	var s scraper.Scraper
	if pt == models.Houses {
		s = lalonja.New(cfg, logger)
	} else {
		m, err := metrocuadrado.New(cfg, pt, logger)
		if err != nil {
			return err
		}
		s = m
	}

	started := time.Now()
	raw, err := s.Scrape(ctx)
	if err != nil {
		return err
	}
	listings := services.NewCleaner(logger).Clean(raw)
	if len(listings) == 0 {
		return fmt.Errorf("no listings were scraped")
	}

	path := scraper.OutputPath(cfg.DataDir, pt, cfg.City, started)
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	if err := w.WriteRaw(listings); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("csv: close %q: %w", path, err)
	}
	logger.Info("Saved %d listings to %s in %v", w.Rows(), path, time.Since(started).Round(time.Second))
	return nil
}

func runReport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	fs.StringVar(&cfg.PropertyType, "type", cfg.PropertyType, "property type: Apartments, Houses or Offices")
	fs.IntVar(&cfg.Year, "year", cfg.Year, "report year")
	fs.IntVar(&cfg.Quarter, "quarter", cfg.Quarter, "report quarter, 1-4")
	fs.StringVar(&cfg.RegionsFile, "regions", cfg.RegionsFile, "region-of-interest YAML file")
	_ = fs.Parse(args)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))
	pt := models.PropertyType(cfg.PropertyType)

	window, err := services.NewReportWindow(cfg.Year, cfg.Quarter)
	if err != nil {
		return err
	}
	aggregator, err := services.NewAggregator(cfg.MinSampleSize, logger)
	if err != nil {
		return err
	}
	roi, err := config.LoadRegionOfInterest(cfg.RegionsFile)
	if err != nil {
		return err
	}
	logger.Info("=== %s report for %s, %s ===", pt, roi.Title, window)

	regions, err := services.LoadRegionSet(roi, logger)
	if err != nil {
		return err
	}
	files, err := storage.DiscoverListingFiles(filepath.Join(cfg.DataDir, string(pt)), cfg.ListingsPattern)
	if err != nil {
		return err
	}

	pipeline := services.NewPipeline(storage.NewCSVListingReader(logger), aggregator, logger)
	report, err := pipeline.Run(services.ReportRequest{
		Files:        files,
		Window:       window,
		Regions:      regions,
		PropertyType: pt,
		Title:        roi.Title,
		Slug:         roi.Slug,
	})
	if err != nil {
		return err
	}

	insights := services.NewInsightService(os.Stdout)
	insights.Print(insights.Generate(report))

	paths, err := storage.ExportAll(cfg.OutputDir, report, func(dir string) []storage.ReportExporter {
		return exporters(cfg, dir)
	})
	if err != nil {
		return err
	}
	for _, p := range paths {
		logger.Info("Wrote %s", p)
	}
	return nil
}

// exporters returns the outputs enabled in cfg, writing into dir.
func exporters(cfg *config.Config, dir string) []storage.ReportExporter {
	var out []storage.ReportExporter
	if cfg.ExportCSV {
		out = append(out, storage.NewRegionCSVWriter(dir))
	}
	if cfg.ExportGeoJSON {
		out = append(out, storage.NewGeoJSONWriter(dir))
	}
	if cfg.ExportXLSX {
		out = append(out, storage.NewXLSXReportWriter(dir))
	}
	if cfg.RenderMap {
		out = append(out, render.NewChoropleth(dir, render.DefaultStyle(cfg.MapSize)))
	}
	return out
}
