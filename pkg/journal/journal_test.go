package journal

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpenCreatesSchema(t *testing.T) {
	j := newTestJournal(t)

	for _, table := range []string{"runs", "decisions"} {
		var name string
		err := j.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %q not found", table)
	}
}

func TestBeginRunAndList(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	first, err := j.BeginRun(ctx, "sub01", []string{"a.tck", "b.tck"}, 1200)
	require.NoError(t, err)
	second, err := j.BeginRun(ctx, "sub02", []string{"c.tck"}, 40)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	runs, err := j.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, "sub02", runs[0].Prefix)
	assert.Equal(t, []string{"c.tck"}, runs[0].Sources)
	assert.Equal(t, 40, runs[0].Streamlines)

	assert.Equal(t, first, runs[1].ID)
	assert.Equal(t, []string{"a.tck", "b.tck"}, runs[1].Sources)
	assert.WithinDuration(t, time.Now().UTC(), runs[1].StartedAt, time.Minute)

	limited, err := j.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second, limited[0].ID)
}

func TestRecordAssignsSequencePerRun(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	runA, err := j.BeginRun(ctx, "a", []string{"a.tck"}, 10)
	require.NoError(t, err)
	runB, err := j.BeginRun(ctx, "b", []string{"b.tck"}, 20)
	require.NoError(t, err)

	require.NoError(t, j.Record(ctx, runA, ActionAccept, "/0/", 8, 12.5))
	require.NoError(t, j.Record(ctx, runB, ActionReject, "/1/", 3, 7))
	require.NoError(t, j.Record(ctx, runA, ActionUndo, "/0/", 8, 12.5))
	require.NoError(t, j.Record(ctx, runA, ActionSave, "", 10, math.NaN()))

	a, err := j.Decisions(ctx, runA)
	require.NoError(t, err)
	require.Len(t, a, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{a[0].Seq, a[1].Seq, a[2].Seq})
	assert.Equal(t, ActionAccept, a[0].Action)
	assert.Equal(t, "/0/", a[0].Bundle)
	assert.Equal(t, 8, a[0].Streamlines)
	assert.Equal(t, 12.5, a[0].Threshold)
	assert.Equal(t, ActionUndo, a[1].Action)
	assert.Equal(t, ActionSave, a[2].Action)

	b, err := j.Decisions(ctx, runB)
	require.NoError(t, err)
	require.Len(t, b, 1)
	assert.Equal(t, 1, b[0].Seq)
	assert.Equal(t, runB, b[0].RunID)
}

func TestThresholdWithoutValueStoresNull(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	run, err := j.BeginRun(ctx, "p", []string{"x.tck"}, 5)
	require.NoError(t, err)

	require.NoError(t, j.Record(ctx, run, ActionMerge, "/", 5, math.NaN()))
	require.NoError(t, j.Record(ctx, run, ActionSplit, "/", 5, math.Inf(1)))
	require.NoError(t, j.Record(ctx, run, ActionAccept, "/0/", 2, 3.25))

	ds, err := j.Decisions(ctx, run)
	require.NoError(t, err)
	require.Len(t, ds, 3)
	assert.True(t, math.IsNaN(ds[0].Threshold))
	assert.True(t, math.IsNaN(ds[1].Threshold), "infinite thresholds read back as NaN")
	assert.Equal(t, 3.25, ds[2].Threshold)
	assert.WithinDuration(t, time.Now().UTC(), ds[2].CreatedAt, time.Minute)
}

func TestRecordRejectsUnknownRun(t *testing.T) {
	j := newTestJournal(t)
	err := j.Record(context.Background(), "no-such-run", ActionAccept, "/0/", 1, 1)
	require.Error(t, err, "foreign keys are enforced")
}

func TestDecisionsOfUnknownRunIsEmpty(t *testing.T) {
	j := newTestJournal(t)
	ds, err := j.Decisions(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, ds)
}

func TestOpenOnDiskPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "journal.db")
	ctx := context.Background()

	j, err := Open(path)
	require.NoError(t, err)
	run, err := j.BeginRun(ctx, "sub", []string{"in.tck"}, 7)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, run, ActionAccept, "/0/", 7, 9))
	require.NoError(t, j.Close())

	_, err = os.Stat(path)
	require.NoError(t, err, "journal file must exist")

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()

	runs, err := j2.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run, runs[0].ID)

	ds, err := j2.Decisions(ctx, run)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, ActionAccept, ds[0].Action)
}
