package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-stickers/models"
)

const (
	titleSelector      = `[data-test="sticker-name-title"]`
	previewSelector    = "li.FnStickerPreviewItem"
	authorItemSelector = `li[data-test="author-item"]`
	nextPageSelector   = `a[data-test="next-btn"]`
	styleImageSelector = "span.mdCMN09Image"
)

var stickerIDPattern = regexp.MustCompile(`/(\d+)/`)

// ExtractTitle returns the trimmed text of the product title element.
func ExtractTitle(doc *goquery.Document) (string, error) {
	sel := doc.Find(titleSelector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: check that the URL points to a sticker product page", ErrMissingTitle)
	}
	title := strings.TrimSpace(sel.Text())
	if title == "" {
		return "", fmt.Errorf("%w: title element is empty", ErrMissingTitle)
	}
	return title, nil
}

// ExtractStickerData decodes the data-preview JSON of every sticker preview item,
// keyed by sticker id. Items without the attribute, without a string id, or with
// fields of the wrong type are skipped; a single item with invalid JSON fails the
// whole page.
func ExtractStickerData(doc *goquery.Document) (map[string]models.Sticker, error) {
	stickers := make(map[string]models.Sticker)

	var parseErr error
	doc.Find(previewSelector).EachWithBreak(func(i int, item *goquery.Selection) bool {
		raw, ok := item.Attr("data-preview")
		if !ok {
			return true
		}

		if !json.Valid([]byte(raw)) {
			parseErr = fmt.Errorf("%w: preview item %d: invalid json", ErrMalformedStickerData, i)
			return false
		}

		var sticker models.Sticker
		if err := json.Unmarshal([]byte(raw), &sticker); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				return true
			}
			parseErr = fmt.Errorf("%w: preview item %d: %v", ErrMalformedStickerData, i, err)
			return false
		}
		if sticker.ID == "" {
			return true
		}
		stickers[sticker.ID] = sticker
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return stickers, nil
}

// ExtractListingLinks returns the product links and the next-page link of a listing
// page, resolved against pageURL. The result has no duplicates and keeps document
// order, with the next page last.
func ExtractListingLinks(pageURL string, doc *goquery.Document) ([]string, error) {
	hrefs := make([]string, 0)
	doc.Find(authorItemSelector).Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find("a").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		hrefs = append(hrefs, strings.TrimSpace(href))
	})
	if href, ok := doc.Find(nextPageSelector).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		hrefs = append(hrefs, strings.TrimSpace(href))
	}

	seen := make(map[string]struct{}, len(hrefs))
	links := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		abs, err := ResolveURL(pageURL, href)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	}
	return links, nil
}

// ExtractStyleImages collects sticker images referenced from inline background-image
// styles, keyed by the numeric sticker id in the image path. Query strings are dropped.
func ExtractStyleImages(doc *goquery.Document) map[string]string {
	images := make(map[string]string)
	doc.Find(styleImageSelector).Each(func(_ int, span *goquery.Selection) {
		style, ok := span.Attr("style")
		if !ok {
			return
		}
		imageURL := imageURLFromStyle(style)
		if imageURL == "" {
			return
		}
		match := stickerIDPattern.FindStringSubmatch(imageURL)
		if match == nil {
			return
		}
		images[match[1]] = imageURL
	})
	return images
}

func imageURLFromStyle(style string) string {
	start := strings.Index(style, "https")
	if start < 0 {
		return ""
	}
	rest := style[start:]
	if end := strings.IndexAny(rest, "?)"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
