// Package cell provides the reactive single-value container the form store
// is built on: Get/Set/Subscribe per cell, plus a Hub-level Batch that
// coalesces any number of sets into one notification pass per cell.
//
// The store consumes cells strictly through this surface, so an alternative
// implementation can be substituted via formic.WithHub.
package cell

import "sync"

// Cell is one observable value. Cells are created through a Hub so that
// batching spans every cell sharing that hub.
type Cell struct {
	hub     *Hub
	mu      sync.Mutex
	value   any
	nextSub int
	subs    map[int]func(any)
}

// Hub owns batching state for a family of cells.
type Hub struct {
	mu      sync.Mutex
	depth   int
	pending []*Cell
	queued  map[*Cell]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{queued: map[*Cell]struct{}{}}
}

// Cell creates a new cell holding initial.
func (h *Hub) Cell(initial any) *Cell {
	return &Cell{hub: h, value: initial, subs: map[int]func(any){}}
}

// Get returns the current value.
func (c *Cell) Get() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set stores v and notifies subscribers. Inside a batch the notification is
// deferred until the outermost batch exits; repeated sets of one cell within
// a batch collapse into a single notification carrying the final value.
func (c *Cell) Set(v any) {
	c.mu.Lock()
	c.value = v
	c.mu.Unlock()

	h := c.hub
	h.mu.Lock()
	if h.depth > 0 {
		if _, ok := h.queued[c]; !ok {
			h.queued[c] = struct{}{}
			h.pending = append(h.pending, c)
		}
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	c.notify()
}

// Subscribe registers fn and returns an unsubscribe function. fn is called
// with the cell's value at notification time.
func (c *Cell) Subscribe(fn func(any)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Cell) notify() {
	c.mu.Lock()
	v := c.value
	fns := make([]func(any), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// Batch runs fn with notifications deferred. Batches nest; notifications
// flush when the outermost Batch returns, in first-set order, one per
// touched cell. A cell set again during the flush is re-queued into the
// same flush pass.
func (h *Hub) Batch(fn func()) {
	h.mu.Lock()
	h.depth++
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		if h.depth > 1 {
			h.depth--
			h.mu.Unlock()
			return
		}
		// depth stays at 1 while draining so sets made by subscribers
		// queue into the same pass instead of notifying inline
		for len(h.pending) > 0 {
			batch := h.pending
			h.pending = nil
			h.queued = map[*Cell]struct{}{}
			h.mu.Unlock()
			for _, c := range batch {
				c.notify()
			}
			h.mu.Lock()
		}
		h.depth--
		h.mu.Unlock()
	}()

	fn()
}
