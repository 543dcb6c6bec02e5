// Package guard defines the interface for in-flight run tracking.
package guard

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guard tracks identifiers with work currently in flight, so concurrent
// callers can agree on a single owner per id.
type Guard interface {
	// TryAcquire atomically checks whether id is in flight and claims it if
	// not. Returns true if this caller now owns the id, false if another
	// caller already holds it.
	TryAcquire(ctx context.Context, id string) bool

	// Release frees an id claimed by TryAcquire. Releasing an unclaimed id
	// is a no-op.
	Release(ctx context.Context, id string)

	Size() int64
}

// inMemoryGuard implements Guard with a mutex-protected set.
type inMemoryGuard struct {
	mu      sync.Mutex
	held    map[string]struct{}
	size    atomic.Int64
	maxSize int
}

// NewInMemoryGuard creates an in-memory guard with configuration options.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &inMemoryGuard{
		maxSize: 1024,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.held = make(map[string]struct{})
	return g
}

// TryAcquire atomically checks whether id is held and claims it if not.
func (g *inMemoryGuard) TryAcquire(ctx context.Context, id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[id]; busy {
		return false
	}
	if g.maxSize > 0 && len(g.held) >= g.maxSize {
		// At capacity the claim is refused; the caller retries on the next
		// tick rather than growing the set without bound.
		return false
	}
	g.held[id] = struct{}{}
	g.size.Add(1)
	return true
}

// Release frees a claimed id.
func (g *inMemoryGuard) Release(ctx context.Context, id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[id]; busy {
		delete(g.held, id)
		g.size.Add(-1)
	}
}

// Size returns the number of ids currently in flight.
func (g *inMemoryGuard) Size() int64 {
	return g.size.Load()
}
