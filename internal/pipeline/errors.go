package pipeline

import (
	"errors"
	"fmt"

	"github.com/video-stream/clipper/internal/engine"
	"github.com/video-stream/clipper/internal/storage"
)

// Error kinds. Every error returned by Service matches exactly one of them with
// errors.Is.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrFetchFailed          = errors.New("fetch failed")
	ErrSubtitleNotFound     = errors.New("subtitle not found")
	ErrClipExtractionFailed = errors.New("clip extraction failed")
	ErrEmbedFailed          = errors.New("embed failed")
	ErrInputMissing         = errors.New("input missing")
	ErrArtifactNotFound     = errors.New("artifact not found")
	ErrWorkspaceIO          = storage.ErrWorkspaceIO
	ErrBusy                 = storage.ErrBusy
)

var kindCodes = []struct {
	kind error
	code string
}{
	{ErrInvalidRequest, "invalid_request"},
	{ErrFetchFailed, "fetch_failed"},
	{ErrSubtitleNotFound, "subtitle_not_found"},
	{ErrClipExtractionFailed, "clip_extraction_failed"},
	{ErrEmbedFailed, "embed_failed"},
	{ErrInputMissing, "input_missing"},
	{ErrArtifactNotFound, "artifact_not_found"},
	{ErrWorkspaceIO, "workspace_io"},
	{ErrBusy, "busy"},
}

// StageError is the structured failure of one pipeline stage. Detail carries the
// engine's diagnostic text when an engine was involved.
type StageError struct {
	Stage  string
	Kind   error
	Detail string
	Err    error
}

func (e *StageError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %v: %s", e.Stage, e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func stageError(stage string, kind error, cause error, detail string) *StageError {
	if detail == "" && cause != nil {
		detail = diagnostic(cause)
	}
	return &StageError{Stage: stage, Kind: kind, Detail: detail, Err: cause}
}

// diagnostic extracts the engine's own words from err when it came from a tool.
func diagnostic(err error) string {
	var execErr *engine.ExecError
	if errors.As(err, &execErr) {
		if d := execErr.Diagnostic(); d != "" {
			return d
		}
	}
	return err.Error()
}

// Code maps err to a stable machine-readable code, "internal" when it matches no kind.
func Code(err error) string {
	for _, kc := range kindCodes {
		if errors.Is(err, kc.kind) {
			return kc.code
		}
	}
	return "internal"
}

// Detail returns the diagnostic text of a StageError, or err's message.
func Detail(err error) string {
	var se *StageError
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail
	}
	return err.Error()
}
