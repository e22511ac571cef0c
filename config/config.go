package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL            string
	OutputDir          string
	SearchPageSize     int
	ListingMarker      string
	Timeout            time.Duration
	UserAgent          string
	RespectRobotsTxt   bool
	MaxBodySize        int
	RevisitPages       bool
	VisitedCacheSize   int
	SkipExisting       bool
	StyleImageFallback bool
	ReportFile         string
	ReportFormat       string // csv, json, or dual; empty disables the report
	MetricsAddr        string
	Verbose            bool
}

// DefaultConfig returns defaults for the LINE sticker store.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:            "https://store.line.me",
		OutputDir:          ".",
		SearchPageSize:     36,
		ListingMarker:      "/author/",
		Timeout:            30 * time.Second,
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		RespectRobotsTxt:   false,
		MaxBodySize:        0,
		RevisitPages:       true,
		VisitedCacheSize:   4096,
		SkipExisting:       true,
		StyleImageFallback: false,
		ReportFile:         "",
		ReportFormat:       "csv",
		MetricsAddr:        "",
		Verbose:            false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if !parsedURL.IsAbs() || parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a scheme and host")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.SearchPageSize <= 0 {
		return fmt.Errorf("search page size must be positive")
	}
	if c.ListingMarker == "" {
		return fmt.Errorf("listing marker cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max body size cannot be negative")
	}
	if !c.RevisitPages && c.VisitedCacheSize <= 0 {
		return fmt.Errorf("visited cache size must be positive when revisits are disabled")
	}
	if c.ReportFile != "" && c.ReportFormat != "csv" && c.ReportFormat != "json" && c.ReportFormat != "dual" {
		return fmt.Errorf("report format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// EnvString returns the trimmed value of key and whether it was set to something non-blank.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer. An unset variable is not an error.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvBool parses key as a boolean. An unset variable is not an error.
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return b, true, nil
}
