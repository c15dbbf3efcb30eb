// Package dispatcher fans scan events out to every configured output.
// The scan runner emits events once; the dispatcher delivers them to
// report writers (console, JSON, SARIF, PDF) and to live hooks
// (Prometheus metrics, OTLP traces).
//
// Delivery is strictly best-effort. A broken writer or hook loses its
// own output and nothing else; the pipeline never observes the error.
package dispatcher

import (
	"context"
	"slices"
	"sync"

	"github.com/jshound/jshound/pkg/output/events"
)

// Writer persists events to a report format.
type Writer interface {
	// Write records one event.
	Write(event events.Event) error

	// Flush pushes buffered output to the destination.
	Flush() error

	// Close flushes and releases the destination.
	Close() error

	// SupportsEvent filters which event types reach Write.
	SupportsEvent(eventType events.EventType) bool
}

// Hook feeds a live integration such as a metrics endpoint or a trace
// exporter.
type Hook interface {
	// OnEvent delivers one matching event.
	OnEvent(ctx context.Context, event events.Event) error

	// EventTypes filters delivery. Nil or empty means every event.
	EventTypes() []events.EventType
}

// Dispatcher routes events to writers and hooks. All methods are safe
// for concurrent use.
type Dispatcher struct {
	mu      sync.RWMutex
	writers []Writer
	hooks   []Hook
	closed  bool

	async  bool
	inHook sync.WaitGroup
}

// Config tunes dispatch behavior.
type Config struct {
	// Async delivers hook events on goroutines so a slow collector
	// cannot stall the scan. Close waits for stragglers.
	Async bool
}

// New builds an empty dispatcher; register writers and hooks before
// dispatching.
func New(cfg Config) *Dispatcher {
	return &Dispatcher{async: cfg.Async}
}

// RegisterWriter adds a report writer. Registration after Close is
// ignored.
func (d *Dispatcher) RegisterWriter(w Writer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.writers = append(d.writers, w)
	}
}

// RegisterHook adds a live integration. Registration after Close is
// ignored.
func (d *Dispatcher) RegisterHook(h Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.hooks = append(d.hooks, h)
	}
}

// Dispatch delivers the event to every interested writer and hook.
// The error is always nil today; the signature leaves room for a
// strict mode. Events after Close are dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil
	}
	d.deliverToWriters(event)
	d.deliverToHooks(ctx, event)
	return nil
}

// deliverToWriters runs under the read lock. A failing writer only
// loses its own line; later writers still see the event.
func (d *Dispatcher) deliverToWriters(event events.Event) {
	et := event.EventType()
	for _, w := range d.writers {
		if !w.SupportsEvent(et) {
			continue
		}
		_ = w.Write(event)
	}
}

// deliverToHooks runs under the read lock. In async mode each call
// joins the wait group before the lock is released, which is what
// lets Close wait for every in-flight delivery.
func (d *Dispatcher) deliverToHooks(ctx context.Context, event events.Event) {
	et := event.EventType()
	for _, h := range d.hooks {
		if !hookWants(h, et) {
			continue
		}
		if !d.async {
			_ = h.OnEvent(ctx, event)
			continue
		}
		d.inHook.Add(1)
		go func(hook Hook) {
			defer d.inHook.Done()
			_ = hook.OnEvent(ctx, event)
		}(h)
	}
}

// hookWants applies the hook's EventTypes filter; an empty filter
// subscribes to everything.
func hookWants(h Hook, eventType events.EventType) bool {
	types := h.EventTypes()
	return len(types) == 0 || slices.Contains(types, eventType)
}

// Flush pushes every writer's buffered output.
func (d *Dispatcher) Flush() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, w := range d.writers {
		_ = w.Flush()
	}
	return nil
}

// Close waits out async hook deliveries, then flushes and closes every
// writer. Idempotent; the dispatcher drops events afterward.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	// Dispatch holds the read lock while adding to the wait group, so
	// once the write lock above was held every async delivery is
	// already registered.
	d.inHook.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range d.writers {
		_ = w.Flush()
		_ = w.Close()
	}
	return nil
}
