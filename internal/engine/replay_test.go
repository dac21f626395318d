package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/litelog/internal/store"
)

func TestReopenResumesClock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "resume.db")
	ctx := context.Background()

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	e, err := New(ctx, st)
	require.NoError(t, err)
	loadTransitive(t, e)
	first, err := e.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st = openStore(t, dbPath)
	e, err = New(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, first.LastTimestamp, e.Clock().Current())

	// Relations survive; clauses must be asserted again.
	assert.Equal(t, []string{"path(1, 2)", "path(1, 3)", "path(2, 3)"}, tuples(t, e, "path"))
	assert.Empty(t, e.Clauses())
}

func TestReplayCommitsNothing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "replay.db")
	ctx := context.Background()

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	e, err := New(ctx, st)
	require.NoError(t, err)
	loadTransitive(t, e)
	first, err := e.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st = openStore(t, dbPath)
	e, err = New(ctx, st)
	require.NoError(t, err)
	loadTransitive(t, e)
	second := run(t, e)

	assert.Equal(t, int64(0), second.Facts)
	assert.Greater(t, second.FirstTimestamp, first.LastTimestamp, "timestamps are never reused")
	assert.Equal(t, first.ProgramHash, second.ProgramHash)

	proof, err := e.Explain(ctx, path.Atom(1, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(4), proof.Timestamp)

	runs, err := st.ReadRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first.RunID, runs[0].ID)
	assert.Equal(t, second.RunID, runs[1].ID)
}
