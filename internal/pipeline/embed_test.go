package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/video-stream/clipper/internal/engine"
)

func TestEmbedSubtitles(t *testing.T) {
	h := newHarness(t)
	h.write(t, "clip1.mp4", "video")
	h.write(t, "video.id9.en.vtt", "WEBVTT\n")

	art, err := h.svc.EmbedSubtitles(context.Background(), "clip1.mp4", "video.id9.en.vtt")
	require.NoError(t, err)
	assert.Equal(t, "clip1_sub.mp4", art.Name)

	require.Equal(t, 1, h.transcoder.count())
	spec := h.transcoder.calls[0]
	assert.Equal(t, filepath.Join(h.ws.Root(), "clip1.mp4"), spec.InputPath)
	assert.Equal(t, filepath.Join(h.ws.Root(), "video.id9.en.vtt"), spec.SubtitlePath)
	assert.Equal(t, filepath.Join(h.ws.Root(), "clip1_sub.mp4"), spec.OutputPath)
	assert.ElementsMatch(t, []string{"clip1.mp4", "video.id9.en.vtt", "clip1_sub.mp4"}, h.files(t))
}

func TestEmbedSubtitles_InputMissing(t *testing.T) {
	cases := map[string][]string{
		"clip":     {"video.id9.en.vtt"},
		"subtitle": {"clip1.mp4"},
		"both":     nil,
	}
	for name, present := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			for _, f := range present {
				h.write(t, f, "x")
			}

			_, err := h.svc.EmbedSubtitles(context.Background(), "clip1.mp4", "video.id9.en.vtt")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInputMissing))
			assert.Equal(t, "input_missing", Code(err))
			assert.Zero(t, h.transcoder.count())
		})
	}
}

func TestEmbedSubtitles_InvalidNames(t *testing.T) {
	cases := [][2]string{
		{"../clip1.mp4", "a.vtt"},
		{"clip1.mp4", "/etc/passwd.vtt"},
		{"clip1.vtt", "a.vtt"},
		{"clip1.mp4", "clip2.mp4"},
	}
	for _, c := range cases {
		h := newHarness(t)
		_, err := h.svc.EmbedSubtitles(context.Background(), c[0], c[1])
		require.Error(t, err, c)
		assert.True(t, errors.Is(err, ErrInvalidRequest), c)
		assert.Zero(t, h.transcoder.count())
	}
}

func TestEmbedSubtitles_TranscoderFailure(t *testing.T) {
	h := newHarness(t)
	h.write(t, "clip1.mp4", "video")
	h.write(t, "sub.vtt", "WEBVTT\n")
	h.transcoder.err = &engine.ExecError{
		Tool:   "ffmpeg",
		Stderr: []string{"[Parsed_subtitles_0] Unable to open sub.vtt"},
		Err:    errors.New("exit status 1"),
	}

	_, err := h.svc.EmbedSubtitles(context.Background(), "clip1.mp4", "sub.vtt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmbedFailed))
	assert.Contains(t, Detail(err), "Unable to open sub.vtt")
}

func TestEmbedSubtitles_InputsHeldDuringBurn(t *testing.T) {
	h := newHarness(t)
	h.write(t, "clip1.mp4", "video")
	h.write(t, "sub.vtt", "WEBVTT\n")

	var purged []string
	tr := &hookTranscoder{fn: func(spec engine.TranscodeSpec) error {
		report, err := h.ws.PurgeAll()
		require.NoError(t, err)
		purged = report.Deleted
		return h.transcoder.BurnSubtitles(context.Background(), spec)
	}}
	svc := New(h.ws, h.fetcher, tr, WithIDGenerator(sequentialIDs()))

	_, err := svc.EmbedSubtitles(context.Background(), "clip1.mp4", "sub.vtt")
	require.NoError(t, err)
	assert.Empty(t, purged)
}

type hookTranscoder struct {
	fn func(engine.TranscodeSpec) error
}

func (h *hookTranscoder) BurnSubtitles(_ context.Context, spec engine.TranscodeSpec) error {
	return h.fn(spec)
}
