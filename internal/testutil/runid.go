package testutil

import (
	"fmt"
	"sync"
)

// SequentialRunIDGenerator generates run identifiers of the form
// "<prefix>-0001", "<prefix>-0002", ...
//
// Run ids are the primary key of the run log, so a test that runs more
// than once needs distinct ids. Sequential ids keep golden files stable
// across runs of the same scenario.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialRunIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialRunIDGenerator creates a generator. If prefix is empty,
// "run" is used.
func NewSequentialRunIDGenerator(prefix string) *SequentialRunIDGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDGenerator{prefix: prefix}
}

// Generate returns the next identifier.
//
// Implements engine.RunIDGenerator interface.
func (g *SequentialRunIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
