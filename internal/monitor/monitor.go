// Package monitor keeps a status file describing the running flight up to date.
package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"github.com/ascentops/autopilot/internal/flight"
)

// DefaultInterval is how often the status file is rewritten.
const DefaultInterval = time.Second

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Context *flight.Context
	// Samples reports the current flight log length.
	Samples  func() int
	Path     string
	Interval time.Duration
	Logger   *slog.Logger
}

// Status is one snapshot of the running flight.
type Status struct {
	Time         time.Time `json:"time"`
	FlightID     string    `json:"flightId"`
	Vessel       string    `json:"vessel"`
	Phase        string    `json:"phase"`
	StagingLevel string    `json:"stagingLevel"`
	MET          float64   `json:"met"`
	Samples      int       `json:"samples"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current flight status.
func (s *Service) GetStatus() Status {
	st := Status{Time: time.Now().UTC()}
	if c := s.deps.Context; c != nil {
		if f := c.Flight(); f != nil {
			st.FlightID = f.FlightID
			st.Vessel = f.VesselName
		}
		st.Phase = c.Phase()
		st.StagingLevel = c.Level()
		st.MET = c.MET()
	}
	if s.deps.Samples != nil {
		st.Samples = s.deps.Samples()
	}
	return st
}

// WriteStatus replaces the status file with the current status.
func (s *Service) WriteStatus() error {
	if s.deps.Path == "" {
		return errors.New("monitor: no status file path")
	}
	data, err := json.MarshalIndent(s.GetStatus(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := renameio.WriteFile(s.deps.Path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if s.deps.Path == "" {
		return errors.New("monitor: no status file path")
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(s.stopChan, s.done)
	return nil
}

func (s *Service) run(stop, done chan struct{}) {
	defer close(done)
	logger := s.deps.Logger.With("component", "monitor")
	logger.Debug("Starting status monitor", "path", s.deps.Path)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			// leave the final state behind for whoever reads the file next
			if !s.flying() {
				return
			}
			if err := s.WriteStatus(); err != nil {
				logger.Error("Error writing status file", "error", err)
			}
			return
		case <-ticker.C:
			if !s.flying() {
				continue
			}
			if err := s.WriteStatus(); err != nil {
				logger.Error("Error writing status file", "error", err)
			}
		}
	}
}

func (s *Service) flying() bool {
	if s.deps.Context == nil {
		return true
	}
	f := s.deps.Context.Flight()
	return f != nil && f.FlightID != ""
}

// Stop stops the status monitor and waits for the final write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
}
