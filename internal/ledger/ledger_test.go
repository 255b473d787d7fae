// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pmc-harvester/pkg/types"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", DefaultFile)
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpenCreatesDatabase(t *testing.T) {
	_, path := testStore(t)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenIsReentrant(t *testing.T) {
	s, path := testStore(t)
	_, err := s.Record(context.Background(), "", types.DownloadStats{Keyword: "a"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()

	runs, err := again.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecordAndHistory(t *testing.T) {
	s, _ := testStore(t)
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	first := types.DownloadStats{
		Keyword: "sepsis", TotalFound: 120, Requested: 10, Successful: 7,
		Unavailable: 2, Errors: 1, Duration: 1500 * time.Millisecond,
		OutputDir: "publications/sepsis",
	}
	second := types.DownloadStats{Keyword: "sepsis", TotalFound: 120, Requested: 10, Skipped: 7, Unavailable: 3}
	other := types.DownloadStats{Keyword: "other"}

	run, err := s.Record(ctx, "", first)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, types.ExitOK, run.ExitCode)

	_, err = s.Record(ctx, "", second)
	require.NoError(t, err)
	_, err = s.Record(ctx, "", other)
	require.NoError(t, err)

	hist, err := s.History(ctx, "sepsis", 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, 7, hist[0].Stats.Skipped, "newest first")
	assert.Equal(t, first.Successful, hist[1].Stats.Successful)
	assert.Equal(t, first.OutputDir, hist[1].Stats.OutputDir)
	assert.Equal(t, first.Duration, hist[1].Stats.Duration)
	assert.True(t, fixed.Equal(hist[1].FinishedAt))

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "other", recent[0].Stats.Keyword)
	assert.Equal(t, types.ExitNoResults, recent[0].ExitCode)
}

func TestBatch(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	batch := NewBatchID()

	for _, kw := range []string{"a", "b", "c"} {
		_, err := s.Record(ctx, batch, types.DownloadStats{Keyword: kw})
		require.NoError(t, err)
	}
	_, err := s.Record(ctx, "", types.DownloadStats{Keyword: "solo"})
	require.NoError(t, err)

	runs, err := s.Batch(ctx, batch)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "a", runs[0].Stats.Keyword)
	assert.Equal(t, batch, runs[2].BatchID)

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4, "zero limit returns everything")
}
