// Package models defines data structures for the sticker scraper.
package models

import "time"

// Sticker is the per-item metadata embedded in a product page's data-preview attribute.
// Absent URL fields decode to empty strings.
type Sticker struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	StaticURL         string `json:"staticUrl"`
	FallbackStaticURL string `json:"fallbackStaticUrl"`
	AnimationURL      string `json:"animationUrl"`
	PopupURL          string `json:"popupUrl"`
	SoundURL          string `json:"soundUrl"`
}

// AssetKind names which of a sticker's files an asset is.
type AssetKind string

const (
	AssetSound     AssetKind = "sound"
	AssetAnimation AssetKind = "animation"
	AssetStatic    AssetKind = "static"
)

// Asset is one file selected for download. The crawler fills Product, Directory,
// Path, Skipped and DownloadedAt once it has been handled.
type Asset struct {
	Product      string    `csv:"product" json:"product"`
	Directory    string    `csv:"directory" json:"directory"`
	StickerID    string    `csv:"sticker_id" json:"sticker_id"`
	Kind         AssetKind `csv:"kind" json:"kind"`
	URL          string    `csv:"url" json:"url"`
	Path         string    `csv:"path" json:"path"`
	Skipped      bool      `csv:"skipped" json:"skipped"`
	DownloadedAt time.Time `csv:"downloaded_at" json:"downloaded_at"`
}

// SearchPage is one page of the storefront's sticker search API.
type SearchPage struct {
	TotalCount int          `json:"totalCount"`
	Items      []SearchItem `json:"items"`
}

// SearchItem is a single search hit.
type SearchItem struct {
	ProductURL string `json:"productUrl"`
}

// CrawlResult holds the outcome of crawling one seed URL or search query.
type CrawlResult struct {
	Seed             string
	StartTime        time.Time
	EndTime          time.Time
	ListingPages     int
	ProductPages     int
	AssetsDownloaded int
	AssetsSkipped    int
	Directories      []string
}

// Merge folds other into r, keeping r's seed and start time.
func (r *CrawlResult) Merge(other *CrawlResult) {
	if other == nil {
		return
	}
	r.ListingPages += other.ListingPages
	r.ProductPages += other.ProductPages
	r.AssetsDownloaded += other.AssetsDownloaded
	r.AssetsSkipped += other.AssetsSkipped
	r.Directories = append(r.Directories, other.Directories...)
}
