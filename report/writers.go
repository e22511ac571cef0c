// Package report writes a per-run record of every asset the crawler handled.
package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-stickers/models"
)

// Writer receives batches of handled assets.
type Writer interface {
	Write(assets []*models.Asset) error
	Close() error
}

// New returns the writer for format ("csv", "json" or "dual"). In dual mode the
// JSONL file sits next to filename, with a trailing .csv replaced by .json.
func New(format, filename string) (Writer, error) {
	switch format {
	case "csv":
		return NewCSVWriter(filename)
	case "json":
		return NewJSONWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

var csvHeader = []string{"product", "directory", "sticker_id", "kind", "url", "path", "skipped", "downloaded_at"}

// CSVWriter writes records to CSV.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends assets to the CSV output.
func (cw *CSVWriter) Write(assets []*models.Asset) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, asset := range assets {
		downloadedAt := ""
		if !asset.DownloadedAt.IsZero() {
			downloadedAt = asset.DownloadedAt.Format(time.RFC3339)
		}
		record := []string{
			asset.Product,
			asset.Directory,
			asset.StickerID,
			string(asset.Kind),
			asset.URL,
			asset.Path,
			strconv.FormatBool(asset.Skipped),
			downloadedAt,
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends assets in JSONL format.
func (jw *JSONWriter) Write(assets []*models.Asset) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, asset := range assets {
		if err := jw.encoder.Encode(asset); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
