// Package parser turns storefront markup and URLs into crawl inputs.
package parser

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-scrape-stickers/models"
)

var dirNameReplacer = strings.NewReplacer(
	"/", "_",
	"<", "",
	">", "",
	":", "",
	`"`, "",
	`\`, "",
	"|", "",
	"?", "",
	"*", "",
)

// SanitizeDirectoryName maps a product title to a directory name.
// "/" becomes "_" and the characters < > : " \ | ? * are removed.
func SanitizeDirectoryName(name string) string {
	return dirNameReplacer.Replace(name)
}

// FileExtension returns the suffix after the last "." of the URL's final path segment.
func FileExtension(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}

	segment := u.Path[strings.LastIndex(u.Path, "/")+1:]
	idx := strings.LastIndex(segment, ".")
	if idx < 0 || idx == len(segment)-1 {
		return "", fmt.Errorf("%w: %s", ErrNoExtension, rawURL)
	}
	return segment[idx+1:], nil
}

// AssetPath returns <directory>/<id>.<extension> for an asset URL.
func AssetPath(directory, id, rawURL string) (string, error) {
	ext, err := FileExtension(rawURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(directory, id+"."+ext), nil
}

// ResolveURL rewrites base using a relative reference found on the page at base.
//
// A reference starting with "/" replaces the path and, if it carries one, the query.
// Anything else is a bare query string, with or without a leading "?", that replaces
// the query and keeps the path. The base query is always dropped.
func ResolveURL(base, ref string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, base, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, base)
	}

	u.RawQuery = ""
	u.ForceQuery = false

	if strings.HasPrefix(ref, "/") {
		rawPath, query, hasQuery := strings.Cut(ref, "?")
		unescaped, err := url.PathUnescape(rawPath)
		if err != nil {
			return "", fmt.Errorf("%w: path %q: %v", ErrInvalidURL, rawPath, err)
		}
		u.Path = unescaped
		u.RawPath = rawPath
		if hasQuery {
			u.RawQuery = query
		}
		return u.String(), nil
	}

	u.RawQuery = strings.TrimPrefix(ref, "?")
	return u.String(), nil
}

// IsAbsoluteURL reports whether raw parses as a URL with a scheme and host.
func IsAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

// SelectAssets applies the download policy to one sticker: the sound if present,
// then the animation, or the static image when there is no animation.
func SelectAssets(s models.Sticker) []models.Asset {
	assets := make([]models.Asset, 0, 2)
	if s.SoundURL != "" {
		assets = append(assets, models.Asset{StickerID: s.ID, Kind: models.AssetSound, URL: s.SoundURL})
	}
	switch {
	case s.AnimationURL != "":
		assets = append(assets, models.Asset{StickerID: s.ID, Kind: models.AssetAnimation, URL: s.AnimationURL})
	case s.StaticURL != "":
		assets = append(assets, models.Asset{StickerID: s.ID, Kind: models.AssetStatic, URL: s.StaticURL})
	}
	return assets
}
