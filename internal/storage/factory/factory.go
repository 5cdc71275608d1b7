// Package factory builds the storage backend selected by configuration.
package factory

import (
	"fmt"
	"log/slog"

	"github.com/ascentops/autopilot/internal/config"
	"github.com/ascentops/autopilot/internal/storage"
	"github.com/ascentops/autopilot/internal/storage/memory"
	"github.com/ascentops/autopilot/internal/storage/postgres"
	sqlitestorage "github.com/ascentops/autopilot/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, logger *slog.Logger) (storage.Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(cfg.Postgres, logger), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, logger)
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("%w: %s", storage.ErrUnknownBackend, cfg.Type)
	}
}
