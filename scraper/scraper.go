package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-stickers/config"
	"github.com/aluiziolira/go-scrape-stickers/models"
	"github.com/aluiziolira/go-scrape-stickers/parser"
	"github.com/gocolly/colly/v2"
)

const (
	ctxStart    = "start"
	ctxResponse = "response"
	ctxStatus   = "status"
)

// AssetRecorder receives every asset a product page produced, downloaded or skipped.
type AssetRecorder interface {
	Write(assets []*models.Asset) error
}

// Scraper crawls sticker store pages one at a time and downloads sticker assets.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics
	Recorder  AssetRecorder

	handlersOnce sync.Once
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	// Revisits are decided by the frontier, so colly must never refuse a URL.
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.MaxBodySize = cfg.MaxBodySize
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	s := &Scraper{
		cfg:       cfg,
		collector: collector,
		Metrics:   NewMetrics(),
	}
	s.configureHandlers()
	return s, nil
}

func (s *Scraper) configureHandlers() {
	s.handlersOnce.Do(func() {
		s.collector.OnRequest(func(r *colly.Request) {
			r.Ctx.Put(ctxStart, time.Now())
			s.Metrics.IncRequest("started")
			slog.Debug("request", slog.String("url", r.URL.String()))
		})

		s.collector.OnResponse(func(r *colly.Response) {
			if start, ok := r.Request.Ctx.GetAny(ctxStart).(time.Time); ok {
				s.Metrics.ObserveDuration(time.Since(start))
			}
			s.Metrics.IncRequest("completed")
			r.Ctx.Put(ctxResponse, r)
		})

		s.collector.OnError(func(r *colly.Response, err error) {
			s.Metrics.IncRequest("failed")
			if r == nil {
				return
			}
			ctx := r.Ctx
			if ctx == nil && r.Request != nil {
				ctx = r.Request.Ctx
			}
			if ctx != nil {
				ctx.Put(ctxStatus, r.StatusCode)
			}
			requestURL := ""
			if r.Request != nil && r.Request.URL != nil {
				requestURL = r.Request.URL.String()
			}
			slog.Debug("request error",
				slog.String("url", requestURL),
				slog.Int("status", r.StatusCode),
				slog.Any("error", err),
			)
		})
	})
}

// fetch performs one blocking GET and returns the response.
func (s *Scraper) fetch(rawURL string) (*colly.Response, error) {
	ctx := colly.NewContext()
	if err := s.collector.Request(http.MethodGet, rawURL, nil, ctx, nil); err != nil {
		status, _ := ctx.GetAny(ctxStatus).(int)
		return nil, fmt.Errorf("fetch %s: %w", rawURL, classifyError(err, status))
	}
	resp, ok := ctx.GetAny(ctxResponse).(*colly.Response)
	if !ok {
		return nil, fmt.Errorf("fetch %s: no response received", rawURL)
	}
	return resp, nil
}

// Crawl visits seed and everything reachable from it through listing pages.
// The first error aborts the crawl; the result reflects the work done before it.
func (s *Scraper) Crawl(ctx context.Context, seed string) (*models.CrawlResult, error) {
	result := &models.CrawlResult{Seed: seed, StartTime: time.Now()}
	defer func() { result.EndTime = time.Now() }()

	err := s.crawl(ctx, seed, result)
	if err != nil {
		s.Metrics.IncError(errorTypeLabel(err))
	}
	return result, err
}

func (s *Scraper) crawl(ctx context.Context, seed string, result *models.CrawlResult) error {
	if !parser.IsAbsoluteURL(seed) {
		return fmt.Errorf("%w: %q", parser.ErrInvalidURL, seed)
	}

	visitedSize := 0
	if !s.cfg.RevisitPages {
		visitedSize = s.cfg.VisitedCacheSize
	}
	f, err := newFrontier(visitedSize)
	if err != nil {
		return fmt.Errorf("create frontier: %w", err)
	}
	f.Push(seed)

	for {
		pageURL, ok := f.Pop()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		links, err := s.visit(ctx, pageURL, result)
		if err != nil {
			return err
		}
		f.Push(links...)
	}
}

// visit fetches one page and returns the links it contributes to the frontier.
func (s *Scraper) visit(ctx context.Context, pageURL string, result *models.CrawlResult) ([]string, error) {
	slog.Info("fetching page", slog.String("url", pageURL))

	resp, err := s.fetch(pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	if s.isListing(pageURL) {
		links, err := parser.ExtractListingLinks(pageURL, doc)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", pageURL, err)
		}
		result.ListingPages++
		s.Metrics.IncPage("listing")
		slog.Info("listing page",
			slog.String("url", pageURL),
			slog.Int("links", len(links)),
		)
		return links, nil
	}

	if err := s.processProduct(ctx, pageURL, doc, result); err != nil {
		return nil, fmt.Errorf("product %s: %w", pageURL, err)
	}
	return nil, nil
}

func (s *Scraper) isListing(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	return strings.Contains(u.Path, s.cfg.ListingMarker)
}

func (s *Scraper) processProduct(ctx context.Context, pageURL string, doc *goquery.Document, result *models.CrawlResult) error {
	title, err := parser.ExtractTitle(doc)
	if err != nil {
		return err
	}
	stickers, err := parser.ExtractStickerData(doc)
	if err != nil {
		return err
	}

	dir := s.productDir(title)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	result.ProductPages++
	result.Directories = append(result.Directories, dir)
	s.Metrics.IncPage("product")

	assets := stickerAssets(stickers)
	if len(stickers) == 0 && s.cfg.StyleImageFallback {
		assets = styleAssets(parser.ExtractStyleImages(doc))
	}
	slog.Info("product page",
		slog.String("url", pageURL),
		slog.String("title", title),
		slog.String("dir", dir),
		slog.Int("stickers", len(stickers)),
		slog.Int("assets", len(assets)),
	)

	handled := make([]*models.Asset, 0, len(assets))
	for i := range assets {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, s.record(handled))
		}

		asset := &assets[i]
		asset.Product = title
		asset.Directory = dir
		if err := s.saveAsset(asset); err != nil {
			return errors.Join(err, s.record(handled))
		}
		handled = append(handled, asset)

		if asset.Skipped {
			result.AssetsSkipped++
		} else {
			result.AssetsDownloaded++
		}
	}
	return s.record(handled)
}

func (s *Scraper) productDir(title string) string {
	name := parser.SanitizeDirectoryName(title)
	if name == "" || name == "." || name == ".." {
		name = "_"
	}
	return filepath.Join(s.cfg.OutputDir, name)
}

// saveAsset downloads asset unless its destination already exists.
func (s *Scraper) saveAsset(asset *models.Asset) error {
	path, err := parser.AssetPath(asset.Directory, asset.StickerID, asset.URL)
	if err != nil {
		return fmt.Errorf("sticker %s: %w", asset.StickerID, err)
	}
	asset.Path = path

	if s.cfg.SkipExisting {
		if _, err := os.Stat(path); err == nil {
			asset.Skipped = true
			s.Metrics.IncAsset(asset.Kind, "skipped")
			slog.Info("asset exists, skipping", slog.String("path", path))
			return nil
		}
	}

	if _, err := s.DownloadFile(asset.URL, asset.StickerID, asset.Directory); err != nil {
		return fmt.Errorf("sticker %s: %w", asset.StickerID, err)
	}
	asset.DownloadedAt = time.Now()
	s.Metrics.IncAsset(asset.Kind, "downloaded")
	return nil
}

// DownloadFile writes the body of rawURL to <directory>/<id>.<ext>, where ext comes
// from the URL's last path segment. An existing file at that path is overwritten.
func (s *Scraper) DownloadFile(rawURL, id, directory string) (string, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", fmt.Errorf("create directory %q: %w", directory, err)
	}
	path, err := parser.AssetPath(directory, id, rawURL)
	if err != nil {
		return "", err
	}

	resp, err := s.fetch(rawURL)
	if err != nil {
		return "", err
	}
	if err := resp.Save(path); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	slog.Info("saved asset",
		slog.String("path", path),
		slog.Int("bytes", len(resp.Body)),
	)
	return path, nil
}

func (s *Scraper) record(assets []*models.Asset) error {
	if s.Recorder == nil || len(assets) == 0 {
		return nil
	}
	if err := s.Recorder.Write(assets); err != nil {
		return fmt.Errorf("record assets: %w", err)
	}
	return nil
}

// stickerAssets applies the download policy to every sticker, ordered by id.
func stickerAssets(stickers map[string]models.Sticker) []models.Asset {
	ids := make([]string, 0, len(stickers))
	for id := range stickers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	assets := make([]models.Asset, 0, len(ids)*2)
	for _, id := range ids {
		assets = append(assets, parser.SelectAssets(stickers[id])...)
	}
	return assets
}

func styleAssets(images map[string]string) []models.Asset {
	ids := make([]string, 0, len(images))
	for id := range images {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	assets := make([]models.Asset, 0, len(ids))
	for _, id := range ids {
		assets = append(assets, models.Asset{StickerID: id, Kind: models.AssetStatic, URL: images[id]})
	}
	return assets
}
