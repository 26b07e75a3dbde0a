package engine

import (
	"bytes"
	"strings"
	"sync"
)

// LineRing keeps the last N lines written to it. Partial lines are buffered until their
// newline arrives.
type LineRing struct {
	mu      sync.Mutex
	lines   []string
	head    int
	count   int
	partial bytes.Buffer
}

func NewLineRing(capacity int) *LineRing {
	if capacity < 1 {
		capacity = 50
	}
	return &LineRing{lines: make([]string, capacity)}
}

func (r *LineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.partial.Write(p)
	for {
		data := r.partial.Bytes()
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			break
		}
		r.add(string(data[:i]))
		r.partial.Next(i + 1)
	}
	return len(p), nil
}

func (r *LineRing) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
}

// LastN returns up to n of the most recent lines in chronological order, including a
// trailing unterminated line.
func (r *LineRing) LastN(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ordered := make([]string, 0, r.count+1)
	start := (r.head - r.count + len(r.lines)) % len(r.lines)
	for i := 0; i < r.count; i++ {
		ordered = append(ordered, r.lines[(start+i)%len(r.lines)])
	}
	if tail := strings.TrimSpace(r.partial.String()); tail != "" {
		ordered = append(ordered, tail)
	}
	if len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}
