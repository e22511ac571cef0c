package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-stickers/config"
	"github.com/aluiziolira/go-scrape-stickers/models"
	"github.com/aluiziolira/go-scrape-stickers/parser"
	"github.com/aluiziolira/go-scrape-stickers/report"
	"github.com/aluiziolira/go-scrape-stickers/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	os.Exit(run())
}

func run() int {
	defaultCfg := config.DefaultConfig()
	outputDefault := defaultCfg.OutputDir
	if value, ok := config.EnvString("STICKERDL_OUTPUT"); ok {
		outputDefault = value
	}
	baseURLDefault := defaultCfg.BaseURL
	if value, ok := config.EnvString("STICKERDL_BASE_URL"); ok {
		baseURLDefault = value
	}
	pageSizeDefault := defaultCfg.SearchPageSize
	if value, ok, err := config.EnvInt("STICKERDL_PAGE_SIZE"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid STICKERDL_PAGE_SIZE: %v\n", err)
		return 1
	} else if ok {
		pageSizeDefault = value
	}
	revisitDefault := defaultCfg.RevisitPages
	if value, ok, err := config.EnvBool("STICKERDL_REVISIT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid STICKERDL_REVISIT: %v\n", err)
		return 1
	} else if ok {
		revisitDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("STICKERDL_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	outputDir := flag.String("out", outputDefault, "Directory that product folders are created in")
	baseURL := flag.String("base-url", baseURLDefault, "Sticker store base URL used for search queries")
	pageSize := flag.Int("page-size", pageSizeDefault, "Search results requested per page")
	listingMarker := flag.String("listing-marker", defaultCfg.ListingMarker, "URL path segment that marks a listing (author) page")
	timeoutMs := flag.Int("timeout", int(defaultCfg.Timeout/time.Millisecond), "HTTP request timeout (milliseconds)")
	revisit := flag.Bool("revisit", revisitDefault, "Fetch pages again when they are reachable by more than one path")
	visitedCache := flag.Int("visited-cache", defaultCfg.VisitedCacheSize, "Visited URLs remembered per crawl when -revisit=false")
	skipExisting := flag.Bool("skip-existing", defaultCfg.SkipExisting, "Skip assets whose file already exists")
	styleFallback := flag.Bool("style-fallback", defaultCfg.StyleImageFallback, "Download inline style images when a product page has no preview data")
	respectRobots := flag.Bool("respect-robots", defaultCfg.RespectRobotsTxt, "Respect robots.txt directives")
	reportFile := flag.String("report", "", "Write a record of every handled asset to this file")
	reportFormat := flag.String("report-format", defaultCfg.ReportFormat, "Report format: csv, json, or dual")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <url|query> ...\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Each argument is either a store URL (product or author page) or a search query.")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return 1
	}

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.OutputDir = *outputDir
	cfg.BaseURL = *baseURL
	cfg.SearchPageSize = *pageSize
	cfg.ListingMarker = *listingMarker
	cfg.Timeout = time.Duration(*timeoutMs) * time.Millisecond
	cfg.RevisitPages = *revisit
	cfg.VisitedCacheSize = *visitedCache
	cfg.SkipExisting = *skipExisting
	cfg.StyleImageFallback = *styleFallback
	cfg.RespectRobotsTxt = *respectRobots
	cfg.ReportFile = *reportFile
	cfg.ReportFormat = strings.ToLower(*reportFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		return 1
	}

	if cfg.ReportFile != "" {
		writer, err := report.New(cfg.ReportFormat, cfg.ReportFile)
		if err != nil {
			slog.Error("creating report writer", slog.Any("error", err))
			return 1
		}
		defer func() {
			if err := writer.Close(); err != nil {
				slog.Error("close report", slog.Any("error", err))
			}
		}()
		s.Recorder = writer
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	startTime := time.Now()
	total := &models.CrawlResult{StartTime: startTime}
	failed := 0
	invalid := 0

	for _, arg := range args {
		if ctx.Err() != nil {
			slog.Info("shutdown signal received, skipping remaining arguments")
			break
		}

		var (
			result *models.CrawlResult
			err    error
		)
		switch {
		case parser.IsAbsoluteURL(arg):
			slog.Info("crawling url", slog.String("url", arg))
			result, err = s.Crawl(ctx, arg)
		case strings.TrimSpace(arg) != "":
			query := strings.TrimSpace(arg)
			slog.Info("crawling search query", slog.String("query", query))
			result, err = s.CrawlSearch(ctx, query)
		default:
			slog.Error("argument is neither a URL nor a search query", slog.String("arg", arg))
			invalid++
			continue
		}

		total.Merge(result)
		if err != nil {
			failed++
			slog.Error("crawl failed", slog.String("arg", arg), slog.Any("error", err))
		}
	}
	total.EndTime = time.Now()

	printSummary(total, len(args), failed, invalid)

	if invalid > 0 {
		return 1
	}
	return 0
}

func printSummary(result *models.CrawlResult, args, failed, invalid int) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Crawl complete")
	fmt.Printf("  Arguments:     %d (%d failed, %d invalid)\n", args, failed, invalid)
	fmt.Printf("  Listing pages: %d\n", result.ListingPages)
	fmt.Printf("  Product pages: %d\n", result.ProductPages)
	fmt.Printf("  Downloaded:    %d\n", result.AssetsDownloaded)
	fmt.Printf("  Skipped:       %d\n", result.AssetsSkipped)
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime))
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
