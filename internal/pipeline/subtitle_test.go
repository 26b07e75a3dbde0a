package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/video-stream/clipper/internal/credentials"
	"github.com/video-stream/clipper/internal/db/models"
	"github.com/video-stream/clipper/internal/engine"
	"github.com/video-stream/clipper/internal/storage"
)

const testVideo = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestExtractSubtitle_DefaultLanguage(t *testing.T) {
	h := newHarness(t)
	h.fetcher.content = "WEBVTT\n\n00:00.000 --> 00:01.000\nhello\n"

	art, err := h.svc.ExtractSubtitle(context.Background(), FetchRequest{SourceURL: testVideo})
	require.NoError(t, err)

	assert.Equal(t, "video.id1.en.vtt", art.Name)
	assert.Equal(t, storage.KindSubtitle, art.Kind)

	spec := h.fetcher.last()
	assert.True(t, spec.SubtitlesOnly)
	assert.Equal(t, []string{"en"}, spec.Languages)
	assert.Equal(t, "vtt", spec.SubtitleFormat)
	assert.Equal(t, filepath.Join(h.ws.Root(), "video.id1.%(ext)s"), spec.OutputTemplate)
	assert.Empty(t, spec.CookiesFile)

	dl, err := h.svc.Locate(art.Name, storage.KindSubtitle)
	require.NoError(t, err)
	defer dl.Close()
	data, err := os.ReadFile(dl.Artifact.Path)
	require.NoError(t, err)
	assert.Equal(t, h.fetcher.content, string(data))
}

func TestExtractSubtitle_French(t *testing.T) {
	h := newHarness(t)

	art, err := h.svc.ExtractSubtitle(context.Background(), FetchRequest{SourceURL: testVideo, Language: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "video.id1.fr.vtt", art.Name)
	assert.Equal(t, []string{"fr"}, h.fetcher.last().Languages)
}

func TestExtractSubtitle_RequestsNeverShareAFile(t *testing.T) {
	h := newHarness(t)

	first, err := h.svc.ExtractSubtitle(context.Background(), FetchRequest{SourceURL: testVideo})
	require.NoError(t, err)
	second, err := h.svc.ExtractSubtitle(context.Background(), FetchRequest{SourceURL: testVideo})
	require.NoError(t, err)

	assert.NotEqual(t, first.Name, second.Name)
	assert.ElementsMatch(t, []string{first.Name, second.Name}, h.files(t))
}

func TestExtractSubtitle_NoTrack(t *testing.T) {
	h := newHarness(t)
	h.fetcher.hook = func(engine.FetchSpec) error { return nil }

	_, err := h.svc.ExtractSubtitle(context.Background(), FetchRequest{SourceURL: testVideo, Language: "de"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubtitleNotFound))
	assert.False(t, errors.Is(err, ErrFetchFailed))
	assert.Equal(t, "subtitle_not_found", Code(err))
	assert.Contains(t, Detail(err), "Subtitle not found")
}

func TestExtractSubtitle_EmptyTrackIsNotFound(t *testing.T) {
	h := newHarness(t)
	h.fetcher.content = "WEBVTT\nKind: captions\nLanguage: fr\n"

	_, err := h.svc.ExtractSubtitle(context.Background(), FetchRequest{SourceURL: testVideo, Language: "fr"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubtitleNotFound))
	assert.Empty(t, h.files(t))
}

func TestExtractSubtitle_UnreadableTrackIsRemoved(t *testing.T) {
	h := newHarness(t)
	h.fetcher.content = "<html>sign in to confirm</html>\n"

	_, err := h.svc.ExtractSubtitle(context.Background(), FetchRequest{SourceURL: testVideo})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.Empty(t, h.files(t))
}

func TestExtractSubtitle_ReportsSpan(t *testing.T) {
	h := newHarness(t)

	art, err := h.svc.ExtractSubtitle(context.Background(), FetchRequest{SourceURL: testVideo})
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, art.Duration)
}

func TestExtractSubtitle_FetchFailed(t *testing.T) {
	h := newHarness(t)
	h.fetcher.hook = func(engine.FetchSpec) error {
		return &engine.ExecError{
			Tool:   "yt-dlp",
			Stderr: []string{"[youtube] dQw4w9WgXcQ: Downloading webpage", "ERROR: [youtube] dQw4w9WgXcQ: Video unavailable"},
			Err:    errors.New("exit status 1"),
		}
	}

	_, err := h.svc.ExtractSubtitle(context.Background(), FetchRequest{SourceURL: testVideo})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.False(t, errors.Is(err, ErrSubtitleNotFound))
	assert.Equal(t, "ERROR: [youtube] dQw4w9WgXcQ: Video unavailable", Detail(err))

	var execErr *engine.ExecError
	assert.True(t, errors.As(err, &execErr))
}

func TestExtractSubtitle_InvalidRequest(t *testing.T) {
	cases := map[string]FetchRequest{
		"missing url":   {},
		"bad scheme":    {SourceURL: "file:///etc/passwd"},
		"language list": {SourceURL: testVideo, Language: "en,fr"},
		"all":           {SourceURL: testVideo, Language: "all"},
		"regex":         {SourceURL: testVideo, Language: "en.*"},
		"traversal":     {SourceURL: testVideo, Language: "../x"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.ExtractSubtitle(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
			assert.Zero(t, h.fetcher.count())
		})
	}
}

func TestExtractSubtitle_CredentialsCopyIsPrivate(t *testing.T) {
	src := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(src, []byte("# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tSID\tabc\n"), 0o644))
	bundle, err := credentials.Load(src)
	require.NoError(t, err)
	require.NotNil(t, bundle)

	credDir := t.TempDir()
	h := newHarness(t, WithCredentials(bundle, credDir))

	var seen string
	h.fetcher.hook = func(spec engine.FetchSpec) error {
		seen = spec.CookiesFile
		info, err := os.Stat(spec.CookiesFile)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
		assert.True(t, strings.HasPrefix(spec.CookiesFile, credDir))
		path := strings.Replace(spec.OutputTemplate, "%(ext)s", "en.vtt", 1)
		return os.WriteFile(path, []byte(sampleVTT), 0o644)
	}

	_, err = h.svc.ExtractSubtitle(context.Background(), FetchRequest{SourceURL: testVideo})
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	_, err = os.Stat(seen)
	assert.True(t, errors.Is(err, os.ErrNotExist), "cookie copy must be removed after the fetch")
	assert.Equal(t, []string{"video.id1.en.vtt"}, h.files(t))
}

func TestExtractSubtitle_RecordsRun(t *testing.T) {
	rec := &fakeRecorder{}
	h := newHarness(t, WithRecorder(rec))
	h.fetcher.hook = func(engine.FetchSpec) error { return nil }

	_, err := h.svc.ExtractSubtitle(context.Background(), FetchRequest{SourceURL: testVideo})
	require.Error(t, err)

	runs := rec.all()
	require.Len(t, runs, 1)
	assert.Equal(t, "id1", runs[0].run.ID)
	assert.Equal(t, models.RunSubtitle, runs[0].run.Kind)
	assert.Equal(t, models.StatusFailed, runs[0].status)
	assert.Equal(t, "subtitle_not_found", runs[0].errKind)
}
