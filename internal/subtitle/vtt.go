// Package subtitle reads WebVTT subtitle tracks written by the fetch engine.
package subtitle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNotVTT is returned for input without a WEBVTT header.
var ErrNotVTT = errors.New("not a WebVTT file")

var timestampRe = regexp.MustCompile(`((?:\d+:)?\d{2}:\d{2}[.,]\d{3})\s*-->\s*((?:\d+:)?\d{2}:\d{2}[.,]\d{3})`)

// Cue is one timed subtitle block.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Parse reads WebVTT content into cues. NOTE, STYLE and REGION blocks are skipped.
func Parse(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotVTT
	}
	header := strings.TrimPrefix(scanner.Text(), "\ufeff")
	if header != "WEBVTT" && !strings.HasPrefix(header, "WEBVTT ") && !strings.HasPrefix(header, "WEBVTT\t") {
		return nil, ErrNotVTT
	}

	var cues []Cue
	var current *Cue
	skipping := false
	flush := func() {
		if current != nil && current.Text != "" {
			cues = append(cues, *current)
		}
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			flush()
			skipping = false
			continue
		}
		if skipping {
			continue
		}
		if current == nil && (strings.HasPrefix(line, "NOTE") || line == "STYLE" || line == "REGION") {
			skipping = true
			continue
		}

		if m := timestampRe.FindStringSubmatch(line); m != nil {
			flush()
			start, err := parseTimestamp(m[1])
			if err != nil {
				return nil, err
			}
			end, err := parseTimestamp(m[2])
			if err != nil {
				return nil, err
			}
			current = &Cue{Index: len(cues) + 1, Start: start, End: end}
			continue
		}

		// Text line; cue identifiers before the timing line are dropped
		if current != nil {
			if current.Text != "" {
				current.Text += "\n"
			}
			current.Text += line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return cues, nil
}

// Summary describes a subtitle track.
type Summary struct {
	Cues int
	// Span runs from the first cue start to the last cue end.
	Span time.Duration
}

// Inspect parses the file at path and summarises it.
func Inspect(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer f.Close()

	cues, err := Parse(f)
	if err != nil {
		return Summary{}, fmt.Errorf("%s: %w", path, err)
	}
	s := Summary{Cues: len(cues)}
	if len(cues) > 0 {
		s.Span = cues[len(cues)-1].End - cues[0].Start
	}
	return s, nil
}

// parseTimestamp accepts hh:mm:ss.mmm and mm:ss.mmm.
func parseTimestamp(ts string) (time.Duration, error) {
	ts = strings.Replace(ts, ",", ".", 1)
	main, frac, _ := strings.Cut(ts, ".")
	parts := strings.Split(main, ":")
	var total time.Duration
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("timestamp %q: %w", ts, err)
		}
		total = total*60 + time.Duration(n)
	}
	ms, err := strconv.Atoi(frac)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: %w", ts, err)
	}
	return total*time.Second + time.Duration(ms)*time.Millisecond, nil
}
