package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundQuota_WithinLimit(t *testing.T) {
	q := NewRoundQuota(10)

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Check(0, []string{"nats"}), "round %d should be allowed", i+1)
	}
	assert.Equal(t, 10, q.Current())
	assert.Equal(t, 10, q.MaxRounds())
}

func TestRoundQuota_ExceedsLimit(t *testing.T) {
	q := NewRoundQuota(3)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Check(2, []string{"nats"}))
	}

	err := q.Check(2, []string{"nats"})
	require.Error(t, err)
	assert.True(t, IsRoundLimit(err))

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "2", re.Details["stratum"])
	assert.Equal(t, "3", re.Details["max_rounds"])
	assert.Contains(t, re.Error(), "ROUND_LIMIT")
	assert.Contains(t, re.Error(), "[nats]")
}

func TestRoundQuota_Unlimited(t *testing.T) {
	for _, limit := range []int{0, -1} {
		q := NewRoundQuota(limit)
		for i := 0; i < 1000; i++ {
			require.NoError(t, q.Check(0, nil))
		}
		assert.Equal(t, 1000, q.Current())
	}
}
