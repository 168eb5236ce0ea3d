package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator hands out generation ids "gen-0001", "gen-0002", ...
//
// Unlike engine.UUIDv7Generator, SequenceGenerator can be reset so the same
// scenario run twice stamps identical ids on its schedules and results.
//
// Thread-safety: all methods are safe for concurrent use.
type SequenceGenerator struct {
	mu  sync.Mutex
	seq int
}

// NewSequenceGenerator creates a generator whose first id is "gen-0001".
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

// Generate returns the next id.
//
// Implements engine.GenerationIDGenerator.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("gen-%04d", g.seq)
}

// Count returns how many ids have been generated since the last reset.
func (g *SequenceGenerator) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence at "gen-0001".
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// FixedGenerator returns the same generation id every time. Golden files
// that print generation ids use it.
//
// Thread-safety: FixedGenerator is stateless and safe for concurrent use.
type FixedGenerator struct {
	id string
}

// NewFixedGenerator creates a fixed generator. An empty id becomes
// "gen-fixed".
func NewFixedGenerator(id string) *FixedGenerator {
	if id == "" {
		id = "gen-fixed"
	}
	return &FixedGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedGenerator) Generate() string {
	return g.id
}
