package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────
// KeyedGuard tests
// ─────────────────────────────────────────────────────────────

func TestKeyedGuard_TryLock(t *testing.T) {
	var g keyedGuard

	require.True(t, g.TryLock("block-1"), "first TryLock")
	assert.False(t, g.TryLock("block-1"), "second TryLock for same key")
	assert.True(t, g.TryLock("block-2"), "TryLock for a different key")
	g.Unlock("block-1")
	g.Unlock("block-2")

	assert.True(t, g.TryLock("block-1"), "TryLock after unlock")
	g.Unlock("block-1")
}

func TestKeyedGuard_LockSerialisesSameKey(t *testing.T) {
	var (
		g       keyedGuard
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	ctx := context.Background()
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, g.Lock(ctx, "block"))
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			g.Unlock("block")
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen)
}

func TestKeyedGuard_LockHonoursContext(t *testing.T) {
	var g keyedGuard
	require.True(t, g.TryLock("busy"))
	defer g.Unlock("busy")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.Lock(ctx, "busy"), context.DeadlineExceeded)
}

func TestKeyedGuard_WaitAll(t *testing.T) {
	var g keyedGuard
	require.True(t, g.TryLock("job-a"))

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("job-a")
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}
