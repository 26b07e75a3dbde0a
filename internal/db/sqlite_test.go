package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/video-stream/clipper/internal/db/models"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := NewSQLite(filepath.Join(t.TempDir(), "clipper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestRunLifecycle(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.StartRun(ctx, models.Run{
		ID:        "r1",
		Kind:      models.RunClip,
		SourceURL: "https://video.example/abc",
		Params:    "*00:00:10-00:00:25",
		Artifact:  "clip1.mp4",
	}))

	run, err := d.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, run.Status)
	assert.Nil(t, run.CompletedAt)

	require.NoError(t, d.FinishRun(ctx, "r1", models.StatusSucceeded, "clip1.mp4", "", ""))

	run, err = d.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, run.Status)
	assert.Equal(t, "clip1.mp4", run.Artifact)
	assert.Empty(t, run.Error)
	require.NotNil(t, run.CompletedAt)
}

func TestFinishRun_Failure(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.StartRun(ctx, models.Run{ID: "r2", Kind: models.RunSubtitle}))
	require.NoError(t, d.FinishRun(ctx, "r2", models.StatusFailed, "", "fetch_failed", "ERROR: Video unavailable"))

	run, err := d.GetRun(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, run.Status)
	assert.Equal(t, "fetch_failed", run.ErrorKind)
	assert.Equal(t, "ERROR: Video unavailable", run.Error)
}

func TestNotFound(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	_, err := d.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = d.FinishRun(ctx, "missing", models.StatusFailed, "", "", "x")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListRuns_NewestFirst(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, d.StartRun(ctx, models.Run{
			ID:        id,
			Kind:      models.RunClip,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := d.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)

	empty := openTestDB(t)
	none, err := empty.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
