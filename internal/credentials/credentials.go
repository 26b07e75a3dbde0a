// Package credentials loads the optional cookie bundle used to authorise fetches from
// access-restricted sources.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// ErrEmptyBundle reports a bundle file that exists but holds nothing. Load returns it
// with a nil bundle; callers treat it as absent.
var ErrEmptyBundle = errors.New("credential bundle is empty")

// Bundle is a Netscape-format cookie file held in memory. It is immutable after Load
// and safe for concurrent use.
type Bundle struct {
	source string
	data   []byte
}

// Load reads the bundle at path once. A missing file is not an error: the result is nil
// and fetches proceed unauthenticated. An empty file also yields nil, with ErrEmptyBundle.
func Load(path string) (*Bundle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credential bundle %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyBundle, path)
	}
	return &Bundle{source: path, data: data}, nil
}

// Source is the path the bundle was loaded from.
func (b *Bundle) Source() string {
	if b == nil {
		return ""
	}
	return b.source
}

// Entries counts cookie lines, ignoring comments and blanks. "#HttpOnly_" lines are
// cookies, not comments.
func (b *Bundle) Entries() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, line := range strings.Split(string(b.data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "#HttpOnly_") {
			continue
		}
		n++
	}
	return n
}

// Materialize writes a private copy of the bundle into dir for one engine invocation.
// The fetch engine rewrites its cookie file on exit, so each run gets its own copy and
// the loaded bundle stays untouched. cleanup removes the copy; it is never nil.
func (b *Bundle) Materialize(dir string) (path string, cleanup func(), err error) {
	noop := func() {}
	if b == nil {
		return "", noop, nil
	}
	f, err := os.CreateTemp(dir, "cookies-*.txt")
	if err != nil {
		return "", noop, fmt.Errorf("create cookie copy: %w", err)
	}
	name := f.Name()
	remove := func() { _ = os.Remove(name) }

	if err := f.Chmod(0o600); err != nil {
		f.Close()
		remove()
		return "", noop, fmt.Errorf("chmod cookie copy: %w", err)
	}
	if _, err := f.Write(b.data); err != nil {
		f.Close()
		remove()
		return "", noop, fmt.Errorf("write cookie copy: %w", err)
	}
	if err := f.Close(); err != nil {
		remove()
		return "", noop, fmt.Errorf("close cookie copy: %w", err)
	}
	return name, remove, nil
}
