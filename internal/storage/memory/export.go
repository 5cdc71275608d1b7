package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ascentops/autopilot/pkg/core"
	"github.com/google/renameio/v2"
)

// ExportFileName returns flight_data_YYYYMMDD_HHMMSS.json for a flight started at start.
func ExportFileName(start time.Time, compressed bool) string {
	name := "flight_data_" + start.Format("20060102_150405") + ".json"
	if compressed {
		name += ".gz"
	}
	return name
}

// BuildExport converts the flight log into its persisted shape: one
// [time, x, y, altitude, speed] array per sample.
func BuildExport(samples []core.FlightSample) [][5]float64 {
	rows := make([][5]float64, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, s.Tuple())
	}
	return rows
}

// exportJSON writes the flight log next to any previous exports. Callers hold b.mu.
func (b *Backend) exportJSON() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, ExportFileName(b.flight.StartTime, b.cfg.CompressOutput))
	if err := writeAtomic(outputPath, BuildExport(b.samples), b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

// writeAtomic encodes data into a pending file that only replaces path once fully written.
func writeAtomic(path string, data any, compress bool) error {
	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending export file: %w", err)
	}
	defer func() {
		// removes the temp file unless CloseAtomicallyReplace succeeded
		_ = pendingFile.Cleanup()
	}()

	var w io.Writer = pendingFile
	var gzWriter *gzip.Writer
	if compress {
		gzWriter = gzip.NewWriter(pendingFile)
		w = gzWriter
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("encode flight log: %w", err)
	}
	if gzWriter != nil {
		if err := gzWriter.Close(); err != nil {
			return fmt.Errorf("close gzip stream: %w", err)
		}
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace export file: %w", err)
	}
	return nil
}
