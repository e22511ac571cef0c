package parser

import "errors"

var (
	// ErrInvalidURL is returned when a URL that must be absolute does not parse as one.
	ErrInvalidURL = errors.New("invalid url")
	// ErrMissingTitle is returned when a page has no sticker-name-title element.
	ErrMissingTitle = errors.New("missing sticker title")
	// ErrMalformedStickerData is returned when a preview item's data-preview is not valid JSON.
	ErrMalformedStickerData = errors.New("malformed sticker data")
	// ErrNoExtension is returned when an asset URL's last path segment has no suffix.
	ErrNoExtension = errors.New("no file extension")
)
