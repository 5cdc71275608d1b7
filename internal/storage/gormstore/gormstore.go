// Package gormstore implements the storage.Backend interface on top of GORM
// with internal queues and a background DB writer goroutine.
package gormstore

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ascentops/autopilot/internal/database"
	"github.com/ascentops/autopilot/internal/model"
	"github.com/ascentops/autopilot/internal/queue"
	"github.com/ascentops/autopilot/pkg/core"
	"gorm.io/gorm"
)

// DefaultWriteInterval is how often buffered events are written while flying.
const DefaultWriteInterval = 2 * time.Second

// ErrNoFlight is returned when recording before StartFlight.
var ErrNoFlight = errors.New("no flight started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
	// WriteInterval overrides DefaultWriteInterval; negative disables the background writer.
	WriteInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Samples *queue.Queue[model.Sample]
	Events  *queue.Queue[model.Event]
}

func newQueues() *queues {
	return &queues{
		Samples: queue.New[model.Sample](4096),
		Events:  queue.New[model.Event](64),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	flightID atomic.Uint64

	writeMu  sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.WriteInterval == 0 {
		deps.WriteInterval = DefaultWriteInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// FlightID returns the row ID of the current flight, 0 before StartFlight.
func (b *Backend) FlightID() uint {
	return uint(b.flightID.Load())
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gormstore: no database")
	}

	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Dialector.Name())
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.Logger.Info("Database setup complete")

	if b.deps.WriteInterval > 0 {
		b.stopChan = make(chan struct{})
		b.wg.Add(1)
		go b.runWriter()
	}
	return nil
}

// Close stops the DB writer goroutine after a final write.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
		b.stopChan = nil
	}
	return b.flush()
}

// StartFlight inserts the flight row and assigns its ID back to f.
func (b *Backend) StartFlight(f *core.Flight) error {
	row := model.FromFlight(*f)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new flight: %w", err)
	}

	f.ID = row.ID
	b.flightID.Store(uint64(row.ID))
	b.deps.Logger.Info("Flight registered", "id", row.ID, "flightId", f.FlightID)
	return nil
}

// RecordSamples queues flight log rows.
func (b *Backend) RecordSamples(samples []core.FlightSample) error {
	id := b.FlightID()
	if id == 0 {
		return ErrNoFlight
	}
	b.queues.Samples.Push(model.FromSamples(id, samples)...)
	return nil
}

// RecordEvent queues a flight event.
func (b *Backend) RecordEvent(e *core.FlightEvent) error {
	id := b.FlightID()
	if id == 0 {
		return ErrNoFlight
	}
	b.queues.Events.Push(model.FromEvent(id, *e))
	return nil
}

// EndFlight writes everything still queued and stamps the flight row with its totals.
func (b *Backend) EndFlight() error {
	id := b.FlightID()
	if id == 0 {
		return ErrNoFlight
	}

	if err := b.flush(); err != nil {
		return err
	}

	var stats struct {
		Count     int
		FirstTime float64
		LastTime  float64
	}
	if err := b.deps.DB.Model(&model.Sample{}).
		Select("COUNT(*) AS count, COALESCE(MIN(time), 0) AS first_time, COALESCE(MAX(time), 0) AS last_time").
		Where("flight_id = ?", id).
		Scan(&stats).Error; err != nil {
		return fmt.Errorf("failed to count samples: %w", err)
	}

	end := time.Now()
	if err := b.deps.DB.Model(&model.Flight{}).Where("id = ?", id).Updates(map[string]any{
		"end_time":     end,
		"sample_count": stats.Count,
		"duration":     stats.LastTime - stats.FirstTime,
	}).Error; err != nil {
		return fmt.Errorf("failed to close flight: %w", err)
	}

	b.deps.Logger.Info("Flight stored", "id", id, "samples", stats.Count)
	return nil
}

func (b *Backend) runWriter() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.flush()
		}
	}
}

// flush drains both queues into the DB.
func (b *Backend) flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	return errors.Join(
		writeQueue(b.deps.DB, b.queues.Events, "events", b.deps.Logger),
		writeQueue(b.deps.DB, b.queues.Samples, "samples", b.deps.Logger),
	)
}

// writeQueue inserts everything in q inside one transaction. On failure the
// items go back on the queue for the next attempt.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	if q.Empty() {
		return nil
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error creating rows", "table", name, "error", err)
		tx.Rollback()
		q.Push(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := tx.Commit().Error; err != nil {
		q.Push(items...)
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	log.Debug("Wrote rows", "table", name, "count", len(items))
	return nil
}
