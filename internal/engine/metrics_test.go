package engine

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := setupTestEngine(t, WithMetrics(reg))
	loadTransitive(t, e)
	run(t, e)

	assert.Equal(t, float64(1), promtest.ToFloat64(e.metrics.runs))
	assert.Equal(t, float64(5), promtest.ToFloat64(e.metrics.rounds))
	assert.Equal(t, float64(2), promtest.ToFloat64(e.metrics.committed.WithLabelValues("edge")))
	assert.Equal(t, float64(3), promtest.ToFloat64(e.metrics.committed.WithLabelValues("path")))

	for _, name := range []string{
		"litelog_runs_total",
		"litelog_rounds_total",
		"litelog_facts_committed_total",
		"litelog_statement_duration_seconds",
	} {
		n, err := promtest.GatherAndCount(reg, name)
		require.NoError(t, err)
		assert.Positive(t, n, name)
	}
}

func TestMetricsPrivateRegistry(t *testing.T) {
	// Two engines without WithMetrics must not collide.
	a := setupTestEngine(t)
	b := setupTestEngine(t)
	loadTransitive(t, a)
	loadTransitive(t, b)
	run(t, a)
	run(t, b)
	assert.Equal(t, float64(1), promtest.ToFloat64(b.metrics.runs))
}
