package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ascentops/autopilot/internal/config"
	"github.com/ascentops/autopilot/internal/influx"
	"github.com/ascentops/autopilot/internal/storage"
	"github.com/ascentops/autopilot/internal/storage/factory"
	influxstorage "github.com/ascentops/autopilot/internal/storage/influx"
)

const influxConnectTimeout = 10 * time.Second

// initStorage creates and initializes the configured backend, mirrored to
// InfluxDB when enabled.
func initStorage(zl zerolog.Logger) (storage.Backend, error) {
	storageCfg := config.GetStorageConfig()

	backend, err := factory.NewBackend(storageCfg, Logger)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	Logger.Info("Storage backend created", "type", storageCfg.Type)

	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		backupPath := filepath.Join(
			storageCfg.Memory.OutputDir,
			fmt.Sprintf("influx_backup_%s.log.gz", SessionStartTime.Format("20060102_150405")),
		)
		if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
			return nil, fmt.Errorf("create influx backup dir: %w", err)
		}
		mgr := influx.NewManager(influxCfg, zl.With().Str("component", "influx").Logger(), backupPath)
		backend = storage.Fanout{backend, influxstorage.New(mgr, influxConnectTimeout)}
		Logger.Info("Mirroring flight data to InfluxDB", "url", influxCfg.URL())
	}

	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return backend, nil
}
