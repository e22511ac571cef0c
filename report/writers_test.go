package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-stickers/models"
)

func sampleAsset() *models.Asset {
	return &models.Asset{
		Product:      "We are NewJeans☆",
		Directory:    "out/We are NewJeans☆",
		StickerID:    "20578528",
		Kind:         models.AssetSound,
		URL:          "https://stickershop.line-scdn.net/stickershop/v1/sticker/20578528/android/sticker_sound.m4a?v=1",
		Path:         "out/We are NewJeans☆/20578528.m4a",
		DownloadedAt: time.Date(2025, 11, 4, 13, 9, 13, 0, time.UTC),
	}
}

func TestCSVWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "assets.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write([]*models.Asset{sampleAsset()}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
	if records[0][0] != "product" || records[0][2] != "sticker_id" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][2] != "20578528" || records[1][3] != "sound" || records[1][6] != "false" {
		t.Fatalf("unexpected row: %v", records[1])
	}
}

func TestJSONWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.json")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	skipped := sampleAsset()
	skipped.Skipped = true
	if err := writer.Write([]*models.Asset{sampleAsset(), skipped}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	var lines []models.Asset
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var asset models.Asset
		if err := json.Unmarshal(scanner.Bytes(), &asset); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		lines = append(lines, asset)
	}
	if len(lines) != 2 {
		t.Fatalf("lines=%d, want 2", len(lines))
	}
	if lines[0].Skipped || !lines[1].Skipped {
		t.Fatalf("unexpected skipped flags: %v / %v", lines[0].Skipped, lines[1].Skipped)
	}
}

func TestNewDualWriter(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		csvName  string
		jsonName string
	}{
		{name: "csv name", filename: "assets.csv", csvName: "assets.csv", jsonName: "assets.json"},
		{name: "json name", filename: "assets.json", csvName: "assets.json", jsonName: "assets.json.json"},
		{name: "no extension", filename: "assets", csvName: "assets", jsonName: "assets.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()

			writer, err := New("dual", filepath.Join(dir, tt.filename))
			if err != nil {
				t.Fatalf("create dual writer: %v", err)
			}
			if err := writer.Write([]*models.Asset{sampleAsset()}); err != nil {
				t.Fatalf("write dual: %v", err)
			}
			if err := writer.Close(); err != nil {
				t.Fatalf("close dual: %v", err)
			}

			f, err := os.Open(filepath.Join(dir, tt.csvName))
			if err != nil {
				t.Fatalf("open csv: %v", err)
			}
			defer f.Close()
			rows, err := csv.NewReader(f).ReadAll()
			if err != nil {
				t.Fatalf("read csv: %v", err)
			}
			if len(rows) != 2 || rows[0][0] != "product" {
				t.Fatalf("csv rows=%v, want header plus one record", rows)
			}

			info, err := os.Stat(filepath.Join(dir, tt.jsonName))
			if err != nil {
				t.Fatalf("stat %s: %v", tt.jsonName, err)
			}
			if info.Size() == 0 {
				t.Fatalf("%s is empty", tt.jsonName)
			}
		})
	}
}

func TestCSVWriterLeavesSkippedTimestampEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	skipped := sampleAsset()
	skipped.Skipped = true
	skipped.DownloadedAt = time.Time{}
	if err := writer.Write([]*models.Asset{sampleAsset(), skipped}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d, want 3", len(rows))
	}
	if rows[1][7] != "2025-11-04T13:09:13Z" {
		t.Fatalf("downloaded_at=%q", rows[1][7])
	}
	if rows[2][7] != "" {
		t.Fatalf("skipped downloaded_at=%q, want empty", rows[2][7])
	}
}

func TestNewUnsupportedFormat(t *testing.T) {
	if _, err := New("xml", filepath.Join(t.TempDir(), "assets.xml")); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}
