package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/video-stream/clipper/internal/db/models"
	"github.com/video-stream/clipper/internal/engine"
	"github.com/video-stream/clipper/internal/storage"
)

const sampleVTT = "WEBVTT\n\n00:00:01.000 --> 00:00:03.500\nhello\n"

// fakeFetcher stands in for the fetch engine. Without a hook it writes what the real
// engine would: the subtitle track for each language, or the clip at the template path.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []engine.FetchSpec
	content string
	hook    func(spec engine.FetchSpec) error
}

func (f *fakeFetcher) Fetch(_ context.Context, spec engine.FetchSpec) error {
	f.mu.Lock()
	f.calls = append(f.calls, spec)
	hook, content := f.hook, f.content
	f.mu.Unlock()

	if hook != nil {
		return hook(spec)
	}
	if content == "" {
		content = sampleVTT
	}
	if spec.SubtitlesOnly {
		for _, lang := range spec.Languages {
			path := strings.Replace(spec.OutputTemplate, "%(ext)s", lang+"."+spec.SubtitleFormat, 1)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return err
			}
		}
		return nil
	}
	return os.WriteFile(spec.OutputTemplate, []byte(content), 0o644)
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) last() engine.FetchSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeTranscoder struct {
	mu    sync.Mutex
	calls []engine.TranscodeSpec
	err   error
}

func (f *fakeTranscoder) BurnSubtitles(_ context.Context, spec engine.TranscodeSpec) error {
	f.mu.Lock()
	f.calls = append(f.calls, spec)
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(spec.OutputPath, []byte("burned"), 0o644)
}

func (f *fakeTranscoder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeProber struct {
	d   time.Duration
	err error
}

func (p fakeProber) Duration(context.Context, string) (time.Duration, error) {
	return p.d, p.err
}

type recordedRun struct {
	run      models.Run
	status   models.RunStatus
	artifact string
	errKind  string
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs map[string]*recordedRun
}

func (r *fakeRecorder) StartRun(_ context.Context, run models.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = make(map[string]*recordedRun)
	}
	r.runs[run.ID] = &recordedRun{run: run, status: run.Status}
	return nil
}

func (r *fakeRecorder) FinishRun(_ context.Context, id string, status models.RunStatus, artifact, errKind, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.runs[id]
	if !ok {
		return fmt.Errorf("unknown run %s", id)
	}
	rec.status = status
	rec.artifact = artifact
	rec.errKind = errKind
	return nil
}

func (r *fakeRecorder) all() []recordedRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedRun, 0, len(r.runs))
	for _, rec := range r.runs {
		out = append(out, *rec)
	}
	return out
}

// sequentialIDs returns "id1", "id2", ... on successive calls.
func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id%d", n)
	}
}

type harness struct {
	svc        *Service
	ws         *storage.Workspace
	fetcher    *fakeFetcher
	transcoder *fakeTranscoder
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	ws := storage.NewWorkspace(filepath.Join(t.TempDir(), "clips"), "")
	require.NoError(t, ws.EnsureReady())

	h := &harness{ws: ws, fetcher: &fakeFetcher{}, transcoder: &fakeTranscoder{}}
	opts = append([]Option{WithLogger(zerolog.Nop()), WithIDGenerator(sequentialIDs())}, opts...)
	h.svc = New(ws, h.fetcher, h.transcoder, opts...)
	return h
}

func (h *harness) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(h.ws.Root(), name), []byte(content), 0o644))
}

func (h *harness) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.ws.Root())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
