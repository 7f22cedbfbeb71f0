package store

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"coop-door-backend/internal/model"
)

const statusCacheKey = "door_status"

// Listener is notified with every status that was successfully written.
// It runs on the writer's goroutine after the write lock is released.
type Listener func(model.DoorStatus)

// UpdateFunc computes the next status from the current one. Returning false
// for write leaves the record untouched.
type UpdateFunc func(current model.DoorStatus) (next model.DoorStatus, write bool, err error)

// Gateway serializes all writes to a Store. The reconciliation loop and manual
// replacements both go through it, so a read-modify-write never interleaves
// with another writer.
type Gateway struct {
	store   Store
	timeout time.Duration

	mu sync.Mutex

	cacheMu  sync.Mutex
	cache    *cache.Cache
	cacheTTL time.Duration
	gen      uint64

	listenersMu sync.RWMutex
	listeners   []Listener
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.timeout = d }
}

// WithReadCache caches ReadStatus results for ttl. Writes through the gateway
// refresh the cache; Update always reads the backend.
func WithReadCache(ttl time.Duration) GatewayOption {
	return func(g *Gateway) {
		if ttl > 0 {
			g.cacheTTL = ttl
			g.cache = cache.New(ttl, 2*ttl)
		}
	}
}

// NewGateway wraps s.
func NewGateway(s Store, opts ...GatewayOption) *Gateway {
	g := &Gateway{store: s}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Subscribe registers l for write notifications.
func (g *Gateway) Subscribe(l Listener) {
	g.listenersMu.Lock()
	g.listeners = append(g.listeners, l)
	g.listenersMu.Unlock()
}

// ReadStatus returns the current record. Readers do not take the write lock;
// backends guarantee a read never observes a partially written record.
func (g *Gateway) ReadStatus(ctx context.Context) (model.DoorStatus, error) {
	var gen uint64
	if g.cache != nil {
		g.cacheMu.Lock()
		if v, ok := g.cache.Get(statusCacheKey); ok {
			g.cacheMu.Unlock()
			return v.(model.DoorStatus), nil
		}
		gen = g.gen
		g.cacheMu.Unlock()
	}

	ctx, cancel := g.bound(ctx)
	defer cancel()

	status, err := g.store.ReadStatus(ctx)
	if err != nil {
		return model.DoorStatus{}, err
	}

	if g.cache != nil {
		g.cacheMu.Lock()
		if g.gen == gen {
			g.cache.Set(statusCacheKey, status, g.cacheTTL)
		}
		g.cacheMu.Unlock()
	}
	return status, nil
}

// ReplaceStatus unconditionally overwrites the record. No override semantics
// are checked here.
func (g *Gateway) ReplaceStatus(ctx context.Context, status model.DoorStatus) (model.DoorStatus, error) {
	g.mu.Lock()
	ctx, cancel := g.bound(ctx)
	stored, err := g.store.ReplaceStatus(ctx, status)
	cancel()
	if err == nil {
		g.remember(stored)
	}
	g.mu.Unlock()

	if err != nil {
		return model.DoorStatus{}, err
	}
	g.notify(stored)
	return stored, nil
}

// Update performs a read-modify-write under the write lock. The current
// record is always read from the backend. It returns the record as it stands
// after the call and whether a write happened.
func (g *Gateway) Update(ctx context.Context, fn UpdateFunc) (model.DoorStatus, bool, error) {
	g.mu.Lock()
	stored, written, err := g.update(ctx, fn)
	g.mu.Unlock()

	if err != nil {
		return model.DoorStatus{}, false, err
	}
	if written {
		g.notify(stored)
	}
	return stored, written, nil
}

func (g *Gateway) update(ctx context.Context, fn UpdateFunc) (model.DoorStatus, bool, error) {
	readCtx, cancel := g.bound(ctx)
	current, err := g.store.ReadStatus(readCtx)
	cancel()
	if err != nil {
		return model.DoorStatus{}, false, err
	}

	next, write, err := fn(current)
	if err != nil {
		return model.DoorStatus{}, false, err
	}
	if !write {
		return current, false, nil
	}

	writeCtx, cancel := g.bound(ctx)
	defer cancel()
	stored, err := g.store.ReplaceStatus(writeCtx, next)
	if err != nil {
		return model.DoorStatus{}, false, err
	}
	g.remember(stored)
	return stored, true, nil
}

func (g *Gateway) remember(status model.DoorStatus) {
	if g.cache == nil {
		return
	}
	g.cacheMu.Lock()
	g.gen++
	g.cache.Set(statusCacheKey, status, g.cacheTTL)
	g.cacheMu.Unlock()
}

func (g *Gateway) notify(status model.DoorStatus) {
	g.listenersMu.RLock()
	listeners := make([]Listener, len(g.listeners))
	copy(listeners, g.listeners)
	g.listenersMu.RUnlock()

	for _, l := range listeners {
		l(status)
	}
}

func (g *Gateway) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout > 0 {
		return context.WithTimeout(ctx, g.timeout)
	}
	return context.WithCancel(ctx)
}
