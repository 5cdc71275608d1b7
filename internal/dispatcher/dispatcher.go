// Package dispatcher routes flight events to registered handlers.
//
// Dispatch is synchronous: handlers run on the flight loop and must be quick.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ascentops/autopilot/pkg/core"
)

// HandlerFunc processes one event.
type HandlerFunc func(core.FlightEvent) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*options)

type options struct {
	logged bool
	name   string
}

// Logged adds debug logging around the handler.
func Logged() Option {
	return func(o *options) {
		o.logged = true
	}
}

// Named labels the handler in logs.
func Named(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// Dispatcher routes events by kind. Several handlers may share a kind; they
// run in registration order.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	logger   Logger

	processed metric.Int64Counter
	failed    metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string][]HandlerFunc),
		logger:   logger,
	}

	m := meter()

	var err error
	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total flight events handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Total flight event handler failures"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given event kind.
func (d *Dispatcher) Register(kind string, h HandlerFunc, opts ...Option) {
	o := &options{name: kind}
	for _, opt := range opts {
		opt(o)
	}

	handler := h
	if o.logged {
		handler = d.withLogging(o.name, handler)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = append(d.handlers[kind], handler)
}

// Dispatch runs every handler registered for e.Kind and joins their errors.
func (d *Dispatcher) Dispatch(e core.FlightEvent) error {
	d.mu.RLock()
	hs := d.handlers[e.Kind]
	d.mu.RUnlock()

	if len(hs) == 0 {
		return fmt.Errorf("no handler for event kind: %s", e.Kind)
	}

	kindAttr := metric.WithAttributes(attribute.String("kind", e.Kind))
	var errs []error
	for _, h := range hs {
		if err := h(e); err != nil {
			d.failed.Add(context.Background(), 1, kindAttr)
			errs = append(errs, err)
			continue
		}
		d.processed.Add(context.Background(), 1, kindAttr)
	}
	return errors.Join(errs...)
}

// Publish dispatches e and logs failures. It satisfies core.EventSink.
func (d *Dispatcher) Publish(e core.FlightEvent) {
	if !d.HasHandler(e.Kind) {
		return
	}
	if err := d.Dispatch(e); err != nil {
		d.logger.Error("event handler failed", "kind", e.Kind, "error", err)
	}
}

// HasHandler returns true if a handler is registered for the kind.
func (d *Dispatcher) HasHandler(kind string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[kind]) > 0
}

func (d *Dispatcher) withLogging(name string, h HandlerFunc) HandlerFunc {
	return func(e core.FlightEvent) error {
		start := time.Now()
		d.logger.Debug("handling event", "handler", name, "kind", e.Kind, "to", e.To)

		err := h(e)

		if err != nil {
			d.logger.Error("event failed", "handler", name, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "handler", name, "duration", time.Since(start))
		}
		return err
	}
}

var _ core.EventSink = (*Dispatcher)(nil)
