package service

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// keyedGuard — one holder per key
// ─────────────────────────────────────────────────────────────

// keyedGuard serialises work per key. Different keys never block each
// other.
type keyedGuard struct {
	mu   sync.Mutex
	held map[string]chan struct{} // closed on release
	wg   sync.WaitGroup
}

// TryLock marks key as held. Returns false if it already is.
func (g *keyedGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.acquireLocked(key)
}

// Lock waits until key is free or ctx is done.
func (g *keyedGuard) Lock(ctx context.Context, key string) error {
	for {
		g.mu.Lock()
		if g.acquireLocked(key) {
			g.mu.Unlock()
			return nil
		}
		released := g.held[key]
		g.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *keyedGuard) acquireLocked(key string) bool {
	if g.held == nil {
		g.held = make(map[string]chan struct{})
	}
	if _, ok := g.held[key]; ok {
		return false
	}
	g.held[key] = make(chan struct{})
	g.wg.Add(1)
	return true
}

// Unlock releases key. Must follow a successful Lock or TryLock.
func (g *keyedGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, ok := g.held[key]; ok {
		close(ch)
		delete(g.held, key)
		g.wg.Done()
	}
}

// WaitAll blocks until every held key is released or ctx is cancelled.
func (g *keyedGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
