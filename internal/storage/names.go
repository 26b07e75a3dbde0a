package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// Kind is the media kind of an artifact.
type Kind string

const (
	KindSubtitle Kind = "subtitle"
	KindVideo    Kind = "video"
)

// ErrInvalidName is returned for artifact names that could escape the workspace.
var ErrInvalidName = errors.New("invalid artifact name")

const maxNameLen = 255

var subtitleExtensions = map[string]bool{
	".srt": true, ".vtt": true, ".ass": true, ".ssa": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".mov": true, ".webm": true, ".m4v": true,
}

func IsSubtitleFile(name string) bool {
	return subtitleExtensions[strings.ToLower(filepath.Ext(name))]
}

func IsVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

// KindOf derives the kind from the file extension; anything that is not a subtitle
// is treated as video.
func KindOf(name string) Kind {
	if IsSubtitleFile(name) {
		return KindSubtitle
	}
	return KindVideo
}

// ValidateName checks that name is a single plain file name. It never touches the
// filesystem.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > maxNameLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, maxNameLen)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\:`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q contains a traversal sequence", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q is hidden", ErrInvalidName, name)
	case filepath.IsAbs(name):
		return fmt.Errorf("%w: %q is absolute", ErrInvalidName, name)
	}
	for _, r := range name {
		if r == unicode.ReplacementChar || unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains control characters", ErrInvalidName, name)
		}
	}
	return nil
}
