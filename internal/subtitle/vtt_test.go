package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const autoCaptions = `WEBVTT
Kind: captions
Language: fr

NOTE generated by the engine
spans two lines

1
00:00:00.320 --> 00:00:02.750 align:start position:0%
bonjour
tout le monde

00:00:02.750 --> 00:00:05.000
ça va
`

func TestParse(t *testing.T) {
	cues, err := Parse(strings.NewReader(autoCaptions))
	require.NoError(t, err)
	require.Len(t, cues, 2)

	assert.Equal(t, 1, cues[0].Index)
	assert.Equal(t, 320*time.Millisecond, cues[0].Start)
	assert.Equal(t, 2750*time.Millisecond, cues[0].End)
	assert.Equal(t, "bonjour\ntout le monde", cues[0].Text)
	assert.Equal(t, "ça va", cues[1].Text)
}

func TestParse_ShortTimestamps(t *testing.T) {
	cues, err := Parse(strings.NewReader("\ufeffWEBVTT\n\n01:02.500 --> 01:04.000\nhi\n"))
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, time.Minute+2500*time.Millisecond, cues[0].Start)
}

func TestParse_NotVTT(t *testing.T) {
	for _, in := range []string{"", "1\n00:00:01,000 --> 00:00:02,000\nsrt\n", "<html>"} {
		_, err := Parse(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrNotVTT, in)
	}
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video.x.fr.vtt")
	require.NoError(t, os.WriteFile(path, []byte(autoCaptions), 0o644))

	s, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Cues)
	assert.Equal(t, 5*time.Second-320*time.Millisecond, s.Span)

	empty := filepath.Join(t.TempDir(), "empty.vtt")
	require.NoError(t, os.WriteFile(empty, []byte("WEBVTT\n"), 0o644))
	s, err = Inspect(empty)
	require.NoError(t, err)
	assert.Zero(t, s.Cues)
}
