// Package idgen produces time-ordered identifiers without a central sequence.
//
// An identifier is a second-granularity UTC timestamp, a per-second counter
// and a short random suffix: "yyMMddHHmmss" + "%05d" + "_" + 3 letters.
// Identifiers from one generator sort lexicographically in creation order;
// identifiers from different processes are probabilistically unique.
//
// The counter holds at most 99999 ids per second. Past that, and whenever
// the clock steps back, the generator borrows the following second so the
// order holds; its timestamps may then run ahead of the wall clock.
package idgen

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	timeLayout = "060102150405"
	maxCounter = 99999
)

// Generator is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	now     func() time.Time
	second  int64
	counter int
}

// New returns a generator reading the wall clock.
func New() *Generator {
	return &Generator{now: time.Now}
}

// NewWithClock returns a generator reading the given clock.
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// Next returns a fresh identifier.
func (g *Generator) Next() string {
	g.mu.Lock()
	if sec := g.now().Unix(); sec > g.second {
		g.second = sec
		g.counter = 0
	}
	if g.counter == maxCounter {
		g.second++
		g.counter = 0
	}
	g.counter++
	sec, n := g.second, g.counter
	g.mu.Unlock()

	return fmt.Sprintf("%s%05d_%s", time.Unix(sec, 0).UTC().Format(timeLayout), n, suffix())
}

func suffix() string {
	u := uuid.New()
	b := make([]byte, 3)
	for i := range b {
		b[i] = 'a' + u[i]%26
	}
	return string(b)
}
