// Package sqlitestorage records a flight into an in-memory SQLite database and
// snapshots it to disk via VACUUM INTO when the flight ends.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ascentops/autopilot/internal/config"
	"github.com/ascentops/autopilot/internal/database"
	"github.com/ascentops/autopilot/internal/storage/gormstore"
	"github.com/ascentops/autopilot/pkg/core"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstore.Backend
	cfg      config.SQLiteConfig
	log      *slog.Logger
	start    time.Time
	dumpPath string
}

// New creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := database.GetSqliteDB("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	logger.Info("Using local SQLite DB in memory with disk dump at flight end", "path", cfg.Path)

	return &Backend{
		Backend: gormstore.New(gormstore.Dependencies{DB: db, Logger: logger}),
		cfg:     cfg,
		log:     logger,
	}, nil
}

// StartFlight registers the flight and remembers its start time for the dump file name.
func (b *Backend) StartFlight(f *core.Flight) error {
	b.start = f.StartTime
	return b.Backend.StartFlight(f)
}

// EndFlight writes the queued rows and dumps the database to disk.
func (b *Backend) EndFlight() error {
	if err := b.Backend.EndFlight(); err != nil {
		return err
	}
	if b.cfg.Path == "" {
		return nil
	}

	path := DumpFileName(b.cfg.Path, b.start)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	took, err := database.DumpMemoryDBToDisk(b.DB(), path)
	if err != nil {
		b.log.Error("Error dumping to disk", "error", err)
		return err
	}

	b.dumpPath = path
	b.log.Info("Dumped flight database to disk", "path", path, "duration", took)
	return nil
}

// ExportedFilePath returns the path of the last dump.
func (b *Backend) ExportedFilePath() string {
	return b.dumpPath
}

// DumpFileName stamps the configured path with the flight start time, so
// flights.db becomes flights_20060102_150405.db.
func DumpFileName(path string, start time.Time) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	return filepath.Join(filepath.Dir(path), base+"_"+start.Format("20060102_150405")+ext)
}
