package ingest

import (
	"encoding/csv"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// ArtifactSink receives best-effort debug artifacts (per-table CSVs and
// per-image PNGs). The pipeline never reads these back; a write failure is
// logged by the caller and never aborts ingestion.
type ArtifactSink interface {
	SavePNG(name string, img image.Image) error
	SaveCSV(name string, rows [][]string) error
}

// DirSink writes artifacts into a directory, creating it on demand.
type DirSink struct {
	dir string
}

// NewDirSink creates a sink rooted at dir.
func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir}
}

// SavePNG writes an image as PNG.
func (s *DirSink) SavePNG(name string, img image.Image) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// SaveCSV writes table rows as a CSV file.
func (s *DirSink) SaveCSV(name string, rows [][]string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// DiscardSink drops all artifacts. Used in tests and by the HTTP server.
type DiscardSink struct{}

func (DiscardSink) SavePNG(string, image.Image) error { return nil }
func (DiscardSink) SaveCSV(string, [][]string) error  { return nil }
