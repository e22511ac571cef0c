package scraper

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/aluiziolira/go-scrape-stickers/config"
	"github.com/jarcoal/httpmock"
)

const searchEndpoint = storeURL + "/api/search/sticker"

func searchQuery(query string, offset, limit int) map[string]string {
	return map[string]string{
		"category":      "sticker",
		"type":          "ALL",
		"offset":        strconv.Itoa(offset),
		"limit":         strconv.Itoa(limit),
		"includeFacets": "false",
		"query":         query,
	}
}

func TestSearchURL(t *testing.T) {
	s, _, _ := newTestScraper(t, nil)

	got, err := s.searchURL("we are newjeans", 72, 36)
	if err != nil {
		t.Fatalf("search url: %v", err)
	}
	want := "https://store.line.me/api/search/sticker?category=sticker&includeFacets=false&limit=36&offset=72&query=we+are+newjeans&type=ALL"
	if got != want {
		t.Fatalf("search url=%q, want %q", got, want)
	}
}

func TestCrawlSearchPaginates(t *testing.T) {
	s, transport, _ := newTestScraper(t, func(cfg *config.Config) {
		cfg.SearchPageSize = 2
	})
	visits := &visitLog{}

	transport.RegisterResponderWithQuery("GET", searchEndpoint, searchQuery("pikachu", 0, 2), httpmock.NewStringResponder(200,
		`{"totalCount":3,"items":[{"productUrl":"/stickershop/product/1/en"},{"productUrl":"/stickershop/product/2/en"}]}`))
	transport.RegisterResponderWithQuery("GET", searchEndpoint, searchQuery("pikachu", 2, 2), httpmock.NewStringResponder(200,
		`{"totalCount":3,"items":[{"productUrl":"/stickershop/product/3/en"}]}`))
	for _, id := range []string{"1", "2", "3"} {
		transport.RegisterResponder("GET", storeURL+"/stickershop/product/"+id+"/en", visits.responder(productPage("Pikachu "+id)))
	}

	result, err := s.CrawlSearch(context.Background(), "pikachu")
	if err != nil {
		t.Fatalf("crawl search: %v", err)
	}
	if result.ProductPages != 3 || len(result.Directories) != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Seed != "pikachu" {
		t.Fatalf("seed=%q, want pikachu", result.Seed)
	}

	want := []string{
		storeURL + "/stickershop/product/1/en",
		storeURL + "/stickershop/product/2/en",
		storeURL + "/stickershop/product/3/en",
	}
	got := visits.All()
	if len(got) != len(want) {
		t.Fatalf("visits=%v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("visits=%v, want %v", got, want)
		}
	}
	if calls := transport.GetTotalCallCount(); calls != 5 {
		t.Fatalf("requests=%d, want 5 (2 search pages + 3 products)", calls)
	}
}

func TestCrawlSearchZeroResults(t *testing.T) {
	s, transport, _ := newTestScraper(t, nil)
	transport.RegisterResponderWithQuery("GET", searchEndpoint, searchQuery("nothing here", 0, 36),
		httpmock.NewStringResponder(200, `{"totalCount":0,"items":[]}`))

	result, err := s.CrawlSearch(context.Background(), "nothing here")
	if err != nil {
		t.Fatalf("crawl search: %v", err)
	}
	if result.ProductPages != 0 || result.AssetsDownloaded != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if calls := transport.GetTotalCallCount(); calls != 1 {
		t.Fatalf("requests=%d, want 1", calls)
	}
}

func TestCrawlSearchStopsOnProductFailure(t *testing.T) {
	s, transport, _ := newTestScraper(t, nil)
	visits := &visitLog{}

	transport.RegisterResponderWithQuery("GET", searchEndpoint, searchQuery("broken", 0, 36), httpmock.NewStringResponder(200,
		`{"totalCount":2,"items":[{"productUrl":"/stickershop/product/1/en"},{"productUrl":"/stickershop/product/2/en"}]}`))
	transport.RegisterResponder("GET", storeURL+"/stickershop/product/1/en", httpmock.NewStringResponder(http.StatusNotFound, ""))
	transport.RegisterResponder("GET", storeURL+"/stickershop/product/2/en", visits.responder(productPage("Two")))

	_, err := s.CrawlSearch(context.Background(), "broken")
	var notFound ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if len(visits.All()) != 0 {
		t.Fatalf("second product should not be crawled after a failure")
	}
}

func TestCrawlSearchMalformedResponse(t *testing.T) {
	s, transport, _ := newTestScraper(t, nil)
	transport.RegisterResponderWithQuery("GET", searchEndpoint, searchQuery("garbage", 0, 36),
		httpmock.NewStringResponder(200, `<html>not json</html>`))

	if _, err := s.CrawlSearch(context.Background(), "garbage"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestProductURL(t *testing.T) {
	s, _, _ := newTestScraper(t, nil)

	tests := map[string]string{
		"/stickershop/product/1/en":                      storeURL + "/stickershop/product/1/en",
		"stickershop/product/1/en":                       storeURL + "/stickershop/product/1/en",
		"https://store.line.me/stickershop/product/1/en": storeURL + "/stickershop/product/1/en",
	}
	for in, want := range tests {
		got, err := s.productURL(in)
		if err != nil {
			t.Fatalf("productURL(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("productURL(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestProductURLKeepsBasePathPrefix(t *testing.T) {
	s, _, _ := newTestScraper(t, func(cfg *config.Config) {
		cfg.BaseURL = storeURL + "/shop/"
	})

	got, err := s.productURL("/stickershop/product/1/en")
	if err != nil {
		t.Fatalf("productURL: %v", err)
	}
	if want := storeURL + "/shop/stickershop/product/1/en"; got != want {
		t.Fatalf("productURL=%q, want %q", got, want)
	}
}
