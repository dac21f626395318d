package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Statement kinds, used as metric labels and Stats keys.
const (
	kindOneShot = "one_shot" // one-shot rule, first round only
	kindDelta   = "delta"    // semi-naive variant of a recursive rule
	kindFull    = "full"     // any rule against base tables (naive strategy)
	kindPrime   = "prime"
	kindCommit  = "commit"
	kindExplain = "explain"
)

// metrics holds the engine's prometheus collectors.
type metrics struct {
	rounds    prometheus.Counter
	runs      prometheus.Counter
	committed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &metrics{
		rounds: f.NewCounter(prometheus.CounterOpts{
			Namespace: "litelog",
			Name:      "rounds_total",
			Help:      "Fixpoint rounds executed, across all strata.",
		}),
		runs: f.NewCounter(prometheus.CounterOpts{
			Namespace: "litelog",
			Name:      "runs_total",
			Help:      "Completed fixpoint runs.",
		}),
		committed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "litelog",
			Name:      "facts_committed_total",
			Help:      "Facts committed, by relation.",
		}, []string{"relation"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "litelog",
			Name:      "statement_duration_seconds",
			Help:      "Statement execution time, by statement kind.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"kind"}),
	}
}

// Stat is the cumulative cost of one statement kind.
type Stat struct {
	Kind  string
	Count int
	Total time.Duration
}

// stats accumulates per-kind execution time for Engine.Stats.
type stats struct {
	mu     sync.Mutex
	byKind map[string]*Stat
}

func (s *stats) observe(kind string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byKind == nil {
		s.byKind = make(map[string]*Stat)
	}
	st, ok := s.byKind[kind]
	if !ok {
		st = &Stat{Kind: kind}
		s.byKind[kind] = st
	}
	st.Count++
	st.Total += d
}

func (s *stats) snapshot() []Stat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Stat, 0, len(s.byKind))
	for _, st := range s.byKind {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
