// Package property implements the observable property cell: a named mutable
// value whose writes are delivered synchronously to every subscriber.
//
// Subscribers run on the writer's goroutine, in registration order, after the
// value has been stored. A subscriber may write other cells, so one Set can
// propagate through arbitrarily long chains of behaviours. Cycles are bounded
// by a per-cell depth limit: a write that would re-enter a cell more than
// MaxDepth times stores the value but does not notify, and the truncation
// hook is called instead.
package property

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultMaxDepth bounds nested notifications of one cell.
const DefaultMaxDepth = 256

// Handle identifies one subscription on a cell.
type Handle = uuid.UUID

// Observer receives the new value of a cell.
type Observer func(value any)

// TruncateFunc is called when a write is not propagated because the cell is
// already notifying MaxDepth times.
type TruncateFunc func(name string, value any)

type subscription struct {
	handle Handle
	fn     Observer
}

// Options configures a Cell.
type Options struct {
	// MaxDepth bounds nested notifications of the cell. Zero means DefaultMaxDepth,
	// a negative value disables the limit.
	MaxDepth int
	// OnTruncate is called when a write is stored but not propagated.
	OnTruncate TruncateFunc
}

// Cell is a named value plus an ordered list of subscribers. It is safe for
// concurrent use. Concurrent writes are serialized for the value itself; the
// relative order in which their notifications run is unspecified.
type Cell struct {
	name string

	mu    sync.RWMutex
	value any

	subsMu sync.Mutex
	subs   []subscription

	depth      atomic.Int32
	maxDepth   int32
	onTruncate TruncateFunc
}

// NewCell creates a cell holding value.
func NewCell(name string, value any, optFns ...func(o *Options)) *Cell {
	opts := Options{MaxDepth: DefaultMaxDepth}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Cell{name: name, value: value, maxDepth: int32(opts.MaxDepth), onTruncate: opts.OnTruncate}
}

// Name returns the property name.
func (c *Cell) Name() string { return c.name }

// Get returns the current value.
func (c *Cell) Get() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set stores value and notifies every subscriber with it.
func (c *Cell) Set(value any) {
	c.store(value)
	c.notify(value)
}

// SetNoPropagate stores value without notifying subscribers.
func (c *Cell) SetNoPropagate(value any) {
	c.store(value)
}

// Tick notifies every subscriber with the current value.
func (c *Cell) Tick() {
	c.notify(c.Get())
}

func (c *Cell) store(value any) {
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()
}

func (c *Cell) notify(value any) {
	subs := c.snapshot()
	if len(subs) == 0 {
		return
	}
	d := c.depth.Add(1)
	defer c.depth.Add(-1)
	if c.maxDepth > 0 && d > c.maxDepth {
		if c.onTruncate != nil {
			c.onTruncate(c.name, value)
		}
		return
	}
	for _, s := range subs {
		s.fn(value)
	}
}

func (c *Cell) snapshot() []subscription {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if len(c.subs) == 0 {
		return nil
	}
	out := make([]subscription, len(c.subs))
	copy(out, c.subs)
	return out
}

// Observe registers fn and returns its handle.
func (c *Cell) Observe(fn Observer) Handle {
	h := uuid.New()
	c.ObserveWithHandle(h, fn)
	return h
}

// ObserveWithHandle registers fn under handle. An existing subscription with
// the same handle is replaced in place and keeps its position.
func (c *Cell) ObserveWithHandle(handle Handle, fn Observer) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for i := range c.subs {
		if c.subs[i].handle == handle {
			c.subs[i].fn = fn
			return
		}
	}
	c.subs = append(c.subs, subscription{handle: handle, fn: fn})
}

// Remove unregisters the subscription with handle and reports whether it existed.
func (c *Cell) Remove(handle Handle) bool {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for i := range c.subs {
		if c.subs[i].handle == handle {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveAll unregisters every subscriber.
func (c *Cell) RemoveAll() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subs = nil
}

// HasObserver reports whether handle is subscribed.
func (c *Cell) HasObserver(handle Handle) bool {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, s := range c.subs {
		if s.handle == handle {
			return true
		}
	}
	return false
}

// Subscribers returns the number of subscribers.
func (c *Cell) Subscribers() int {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	return len(c.subs)
}
