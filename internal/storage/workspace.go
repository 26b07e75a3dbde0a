// Package storage owns the transient workspace directory that holds every artifact the
// pipeline produces.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

var (
	// ErrWorkspaceIO wraps filesystem failures on the workspace itself.
	ErrWorkspaceIO = errors.New("workspace i/o error")
	// ErrBusy is returned when an artifact is held by another in-flight request.
	ErrBusy = errors.New("artifact is in use")
	// ErrLocked is returned when another process owns the workspace.
	ErrLocked = errors.New("workspace is owned by another process")
)

// Artifact is a file in the workspace.
type Artifact struct {
	Name       string    `json:"name"`
	Path       string    `json:"-"`
	Kind       Kind      `json:"kind"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`

	// Duration is the media length when it was probed, zero otherwise.
	Duration time.Duration `json:"-"`
}

type claim struct {
	refs      int
	exclusive bool
}

// Workspace manages a flat directory of artifacts. Producers write into it; only the
// workspace deletes from it. An in-use set keeps purges away from files that requests
// are still writing or reading.
type Workspace struct {
	root string
	lock *flock.Flock

	remove func(path string) error

	mu    sync.Mutex
	inUse map[string]*claim
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithRemover replaces os.Remove for purge deletions.
func WithRemover(fn func(path string) error) Option {
	return func(w *Workspace) { w.remove = fn }
}

// NewWorkspace returns a workspace rooted at root. lockPath may be empty to skip the
// cross-process owner lock.
func NewWorkspace(root, lockPath string, opts ...Option) *Workspace {
	w := &Workspace{
		root:   filepath.Clean(root),
		remove: os.Remove,
		inUse:  make(map[string]*claim),
	}
	if lockPath != "" {
		w.lock = flock.New(lockPath)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workspace) Root() string { return w.root }

// EnsureReady creates the workspace directory if it does not exist.
func (w *Workspace) EnsureReady() error {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrWorkspaceIO, w.root, err)
	}
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", ErrWorkspaceIO, w.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrWorkspaceIO, w.root)
	}
	return nil
}

// Resolve validates name and joins it to the workspace root.
func (w *Workspace) Resolve(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(w.root, name), nil
}

// Stat returns the artifact called name. Missing files and anything that is not a
// regular file report fs.ErrNotExist.
func (w *Workspace) Stat(name string) (Artifact, error) {
	path, err := w.Resolve(name)
	if err != nil {
		return Artifact{}, err
	}
	info, err := os.Lstat(path)
	if err != nil {
		return Artifact{}, err
	}
	if !info.Mode().IsRegular() {
		return Artifact{}, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	return artifactFrom(path, info), nil
}

func artifactFrom(path string, info fs.FileInfo) Artifact {
	return Artifact{
		Name:       info.Name(),
		Path:       path,
		Kind:       KindOf(info.Name()),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}
}

// Claim marks name as exclusively held, for a request about to write it. It fails with
// ErrBusy while anyone else holds the name.
func (w *Workspace) Claim(name string) (release func(), err error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok := w.inUse[name]; ok && c.refs > 0 {
		return nil, fmt.Errorf("%w: %s", ErrBusy, name)
	}
	w.inUse[name] = &claim{refs: 1, exclusive: true}
	return w.releaser(name), nil
}

// Acquire takes shared holds on names, for a request reading them. It fails with
// ErrBusy if any of them is exclusively claimed; no hold is taken in that case.
func (w *Workspace) Acquire(names ...string) (release func(), err error) {
	for _, n := range names {
		if err := ValidateName(n); err != nil {
			return nil, err
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, n := range names {
		if c, ok := w.inUse[n]; ok && c.exclusive {
			return nil, fmt.Errorf("%w: %s", ErrBusy, n)
		}
	}
	releases := make([]func(), 0, len(names))
	for _, n := range names {
		c, ok := w.inUse[n]
		if !ok {
			c = &claim{}
			w.inUse[n] = c
		}
		c.refs++
		releases = append(releases, w.releaser(n))
	}
	return func() {
		for _, r := range releases {
			r()
		}
	}, nil
}

func (w *Workspace) releaser(name string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			c, ok := w.inUse[name]
			if !ok {
				return
			}
			c.refs--
			if c.refs <= 0 {
				delete(w.inUse, name)
			}
		})
	}
}

// InUse reports whether name is held by an in-flight request. For exclusive claims the
// intermediates the engines derive from the claimed name count as held too:
// "clip.mp4.part", "clip.mp4.ytdl", "clip.f137.mp4" and "clip.temp.mp4".
func (w *Workspace) InUse(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inUseLocked(name)
}

func (w *Workspace) inUseLocked(name string) bool {
	for held, c := range w.inUse {
		if name == held {
			return true
		}
		if c.exclusive && isIntermediate(held, name) {
			return true
		}
	}
	return false
}

func isIntermediate(held, name string) bool {
	if strings.HasPrefix(name, held+".part") || name == held+".ytdl" {
		return true
	}
	stem := strings.TrimSuffix(held, filepath.Ext(held))
	rest, ok := strings.CutPrefix(name, stem+".")
	if !ok {
		return false
	}
	if strings.HasPrefix(rest, "temp.") {
		return true
	}
	// format-split downloads: stem.f<format id>.ext
	digits, _, ok := strings.Cut(strings.TrimPrefix(rest, "f"), ".")
	if !ok || !strings.HasPrefix(rest, "f") || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PurgeReport lists what PurgeAll did.
type PurgeReport struct {
	Deleted []string
	Skipped []string
	Failed  map[string]error
}

// PurgeAll deletes every regular file directly under the workspace root, except files
// held by in-flight requests. Subdirectories are not descended into. Each deletion is
// attempted independently; failures are collected and returned joined.
func (w *Workspace) PurgeAll() (PurgeReport, error) {
	report := PurgeReport{Deleted: []string{}, Skipped: []string{}}

	entries, err := os.ReadDir(w.root)
	if err != nil {
		return report, fmt.Errorf("%w: list %s: %v", ErrWorkspaceIO, w.root, err)
	}

	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()

		w.mu.Lock()
		held := w.inUseLocked(name)
		var rmErr error
		if !held {
			rmErr = w.remove(filepath.Join(w.root, name))
		}
		w.mu.Unlock()

		switch {
		case held:
			report.Skipped = append(report.Skipped, name)
		case rmErr != nil && errors.Is(rmErr, fs.ErrNotExist):
			// removed by someone else in the meantime
		case rmErr != nil:
			if report.Failed == nil {
				report.Failed = make(map[string]error)
			}
			report.Failed[name] = rmErr
			errs = append(errs, fmt.Errorf("%w: remove %s: %v", ErrWorkspaceIO, name, rmErr))
		default:
			report.Deleted = append(report.Deleted, name)
		}
	}
	return report, errors.Join(errs...)
}

// List returns the regular files in the workspace sorted by name.
func (w *Workspace) List() ([]Artifact, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrWorkspaceIO, w.root, err)
	}
	artifacts := make([]Artifact, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, artifactFrom(filepath.Join(w.root, entry.Name()), info))
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Name < artifacts[j].Name })
	return artifacts, nil
}

// TryLock takes the cross-process owner lock without blocking. It returns ErrLocked
// when another process holds it. Without a lock path it is a no-op.
func (w *Workspace) TryLock() error {
	if w.lock == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(w.lock.Path()), 0o755); err != nil {
		return fmt.Errorf("%w: create lock dir: %v", ErrWorkspaceIO, err)
	}
	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("%w: lock %s: %v", ErrWorkspaceIO, w.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, w.lock.Path())
	}
	return nil
}

// Unlock releases the owner lock.
func (w *Workspace) Unlock() error {
	if w.lock == nil {
		return nil
	}
	return w.lock.Unlock()
}
