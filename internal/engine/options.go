package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Strategy selects how recursive strata are evaluated.
type Strategy int

const (
	// SemiNaive joins each round against the facts committed by the
	// previous round only. The default.
	SemiNaive Strategy = iota

	// Naive re-evaluates every rule of a stratum against all committed
	// facts each round. Slower; used to cross-check SemiNaive.
	Naive
)

func (s Strategy) String() string {
	switch s {
	case SemiNaive:
		return "semi-naive"
	case Naive:
		return "naive"
	default:
		return "unknown"
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics registers the engine's collectors with reg.
// Without it metrics are still collected, on a private registry.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.registerer = reg
	}
}

// WithStrategy selects the evaluation strategy. Default: SemiNaive.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) {
		e.strategy = s
	}
}

// WithMaxRounds caps the rounds of every stratum.
//
// Default: 0 (unlimited). Use WithMaxRounds(100) when a program may not
// terminate.
func WithMaxRounds(n int) Option {
	return func(e *Engine) {
		e.maxRounds = n
	}
}

// WithClock replaces the logical clock. The clock is still advanced past
// the store's latest timestamp on New.
func WithClock(c LogicalClock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRunIDGenerator sets the generator of run log identifiers.
// Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}
