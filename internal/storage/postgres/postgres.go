// Package postgres implements the storage.Backend interface against a
// PostgreSQL server, reusing the queue-based GORM writer.
package postgres

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ascentops/autopilot/internal/config"
	"github.com/ascentops/autopilot/internal/database"
	"github.com/ascentops/autopilot/internal/storage/gormstore"
	"github.com/ascentops/autopilot/pkg/core"
	"gorm.io/gorm"
)

var errNotInitialized = errors.New("postgres backend not initialized")

// Backend stores flights in PostgreSQL.
type Backend struct {
	cfg   config.PostgresConfig
	db    *gorm.DB
	log   *slog.Logger
	store *gormstore.Backend
}

// New creates a backend that connects on Init.
func New(cfg config.PostgresConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, log: logger}
}

// NewWithDB creates a backend over an existing connection.
func NewWithDB(db *gorm.DB, logger *slog.Logger) *Backend {
	b := New(config.PostgresConfig{}, logger)
	b.db = db
	return b
}

// Init connects if no DB was injected, then migrates and starts the writer.
func (b *Backend) Init() error {
	if b.db == nil {
		b.log.Debug("Connecting to Postgres DB", "host", b.cfg.Host, "port", b.cfg.Port, "database", b.cfg.Database)
		db, err := database.GetPostgresDB(b.cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		b.db = db
		b.log.Info("Connected to database", "host", b.cfg.Host)
	}

	store := gormstore.New(gormstore.Dependencies{DB: b.db, Logger: b.log})
	if err := store.Init(); err != nil {
		return err
	}
	b.store = store
	return nil
}

// Close stops the writer and closes the connection.
func (b *Backend) Close() error {
	if b.store == nil {
		return nil
	}
	err := b.store.Close()
	if sqlDB, dbErr := b.db.DB(); dbErr == nil {
		err = errors.Join(err, sqlDB.Close())
	}
	b.store = nil
	return err
}

func (b *Backend) StartFlight(f *core.Flight) error {
	if b.store == nil {
		return errNotInitialized
	}
	return b.store.StartFlight(f)
}

func (b *Backend) EndFlight() error {
	if b.store == nil {
		return errNotInitialized
	}
	return b.store.EndFlight()
}

func (b *Backend) RecordSamples(samples []core.FlightSample) error {
	if b.store == nil {
		return errNotInitialized
	}
	return b.store.RecordSamples(samples)
}

func (b *Backend) RecordEvent(e *core.FlightEvent) error {
	if b.store == nil {
		return errNotInitialized
	}
	return b.store.RecordEvent(e)
}
