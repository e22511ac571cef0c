package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-stickers/models"
	"github.com/aluiziolira/go-scrape-stickers/parser"
)

// CrawlSearch pages through the store's sticker search for query and crawls every
// product it returns. Paging stops once the offset reaches the reported total.
func (s *Scraper) CrawlSearch(ctx context.Context, query string) (*models.CrawlResult, error) {
	result := &models.CrawlResult{Seed: query, StartTime: time.Now()}
	defer func() { result.EndTime = time.Now() }()

	limit := s.cfg.SearchPageSize
	if limit <= 0 {
		return result, fmt.Errorf("search page size must be positive")
	}

	for offset := 0; ; offset += limit {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		page, err := s.fetchSearchPage(query, offset, limit)
		if err != nil {
			s.Metrics.IncError(errorTypeLabel(err))
			return result, err
		}
		slog.Info("search page",
			slog.String("query", query),
			slog.Int("offset", offset),
			slog.Int("total", page.TotalCount),
			slog.Int("items", len(page.Items)),
		)

		for _, item := range page.Items {
			if strings.TrimSpace(item.ProductURL) == "" {
				slog.Debug("search item without product url", slog.String("query", query))
				continue
			}
			seed, err := s.productURL(item.ProductURL)
			if err != nil {
				s.Metrics.IncError(errorTypeLabel(err))
				return result, fmt.Errorf("search %q: %w", query, err)
			}

			sub, err := s.Crawl(ctx, seed)
			result.Merge(sub)
			if err != nil {
				return result, fmt.Errorf("search %q: %w", query, err)
			}
		}

		if offset+limit >= page.TotalCount {
			return result, nil
		}
	}
}

func (s *Scraper) searchURL(query string, offset, limit int) (string, error) {
	base, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", parser.ErrInvalidURL, s.cfg.BaseURL, err)
	}
	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + "/api/search/sticker"
	u.RawPath = ""

	params := url.Values{}
	params.Set("category", "sticker")
	params.Set("type", "ALL")
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("includeFacets", "false")
	params.Set("query", query)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func (s *Scraper) fetchSearchPage(query string, offset, limit int) (*models.SearchPage, error) {
	searchURL, err := s.searchURL(query, offset, limit)
	if err != nil {
		return nil, err
	}
	resp, err := s.fetch(searchURL)
	if err != nil {
		return nil, err
	}

	var page models.SearchPage
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, fmt.Errorf("decode search page %s: %w", searchURL, err)
	}
	return &page, nil
}

// productURL appends a search hit's product URL to the store base URL, keeping any
// path prefix the base carries. Absolute hits are used as they are.
func (s *Scraper) productURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if parser.IsAbsoluteURL(raw) {
		return raw, nil
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	joined := strings.TrimSuffix(s.cfg.BaseURL, "/") + raw
	if !parser.IsAbsoluteURL(joined) {
		return "", fmt.Errorf("%w: %q", parser.ErrInvalidURL, joined)
	}
	return joined, nil
}
