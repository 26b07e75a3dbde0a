package engine

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_CapturesStdout(t *testing.T) {
	requireShell(t)
	r := &ExecRunner{Logger: zerolog.Nop()}

	out, err := r.Run(context.Background(), "sh", "-c", "printf hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestExecRunner_FailureCarriesStderr(t *testing.T) {
	requireShell(t)
	r := &ExecRunner{Logger: zerolog.Nop()}

	_, err := r.Run(context.Background(), "sh", "-c", "echo 'ERROR: no such video' >&2; exit 1")
	require.Error(t, err)

	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "sh", execErr.Tool)
	assert.Equal(t, "ERROR: no such video", execErr.Diagnostic())
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := &ExecRunner{Logger: zerolog.Nop()}
	_, err := r.Run(context.Background(), "definitely-not-a-real-tool-xyz")

	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.True(t, errors.Is(err, exec.ErrNotFound))
}
