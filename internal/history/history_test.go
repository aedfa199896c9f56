package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-transport/pkg/solver"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunRecordsOutcomes(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	run, err := s.BeginRun(ctx, "slab", solver.ForwardSubSourceIteration)
	require.NoError(t, err)

	var r solver.Reporter = run
	r.InnerIteration(0, 0, 0.5)
	r.InnerIteration(0, 1, 1e-9)
	r.GroupOutcome(solver.ForwardSubSourceIteration, 0, true)
	r.StepOutcome(0, true, true)
	r.InnerIteration(0, 0, 1e-3)
	r.GroupOutcome(solver.ForwardSubSourceIteration, 0, false)
	r.StepOutcome(1, true, false)
	require.NoError(t, run.Err())

	steps, err := s.Steps(ctx, run.ID())
	require.NoError(t, err)
	assert.Equal(t, []StepRecord{
		{Seq: 0, Step: 0, Solved: true, Converged: true},
		{Seq: 1, Step: 1, Solved: true, Converged: false},
	}, steps)

	inner, err := s.InnerIterations(ctx, run.ID(), 0)
	require.NoError(t, err)
	assert.Equal(t, []InnerRecord{
		{Seq: 0, Iteration: 0, Residual: 0.5},
		{Seq: 0, Iteration: 1, Residual: 1e-9},
		{Seq: 1, Iteration: 0, Residual: 1e-3},
	}, inner)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "slab", runs[0].Title)
	assert.Equal(t, solver.ForwardSubSourceIteration.String(), runs[0].Strategy)
	assert.Equal(t, 2, runs[0].Steps)
	assert.False(t, runs[0].Converged)
	assert.False(t, runs[0].StartedAt.IsZero())
}

func TestSkippedStepsCountAsConverged(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	run, err := s.BeginRun(ctx, "dry", solver.ForwardSubMonolithic)
	require.NoError(t, err)
	run.StepOutcome(0, false, false)
	run.StepOutcome(1, false, false)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Converged)
}

func TestRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	for _, title := range []string{"first", "second"} {
		_, err := s.BeginRun(ctx, title, solver.ForwardSubMonolithic)
		require.NoError(t, err)
	}

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second", runs[0].Title)
	assert.Zero(t, runs[0].Steps)
	assert.False(t, runs[0].Converged)
}

func TestUnknownRun(t *testing.T) {
	s := openMemory(t)
	_, err := s.Steps(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNoRun)
}

func TestReopenFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	run, err := s.BeginRun(ctx, "persisted", solver.ForwardSubMonolithic)
	require.NoError(t, err)
	run.StepOutcome(0, true, true)
	require.NoError(t, run.Err())
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Converged)
}
