package proc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestSpawnMissingEntryPoint(t *testing.T) {
	t.Parallel()

	s := NewSupervisor()
	_, err := s.Spawn(t.TempDir(), "/nonexistent/run.sh", "")
	assert.Error(t, err)
}

func TestSpawnAndWaitCleanExit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entry := writeScript(t, dir, "run.sh", "exit 0\n")

	s := NewSupervisor()
	h, err := s.Spawn(dir, entry, "")
	require.NoError(t, err)
	assert.Greater(t, h.PID(), 0)

	code, tail := h.Wait()
	assert.Equal(t, 0, code)
	assert.Empty(t, tail)
}

func TestSpawnCrashCapturesStderrTail(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entry := writeScript(t, dir, "run.sh", "echo 'something went wrong' >&2\nexit 3\n")

	s := NewSupervisor()
	h, err := s.Spawn(dir, entry, "")
	require.NoError(t, err)

	code, tail := h.Wait()
	assert.Equal(t, 3, code)
	assert.Contains(t, tail, "something went wrong")
}

func TestStderrTailBounded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entry := writeScript(t, dir, "run.sh",
		"i=0\nwhile [ $i -lt 200 ]; do echo '0123456789abcdef' >&2; i=$((i+1)); done\nexit 1\n")

	s := NewSupervisor()
	h, err := s.Spawn(dir, entry, "")
	require.NoError(t, err)

	_, tail := h.Wait()
	assert.LessOrEqual(t, len(tail), StderrTailChars)
	assert.True(t, strings.HasSuffix(tail, "0123456789abcdef\n"))
}

func TestAliveAndTerminate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entry := writeScript(t, dir, "run.sh", "sleep 30\n")

	s := NewSupervisor()
	h, err := s.Spawn(dir, entry, "")
	require.NoError(t, err)

	assert.True(t, s.Alive(h.PID()))

	go h.Wait() // reaper
	s.Terminate(h.PID())
	assert.True(t, h.Exited(5*time.Second))

	// Reaped processes are no longer alive; probe must not error.
	assert.False(t, s.Alive(h.PID()))
	assert.False(t, s.Alive(-1))

	// Terminating an already-gone pid is a no-op.
	s.Terminate(h.PID())
}

func TestTrackRelease(t *testing.T) {
	t.Parallel()

	s := NewSupervisor()
	h := &Handle{done: make(chan struct{})}

	s.Track("abc", h)
	assert.Same(t, h, s.Release("abc"))
	assert.Nil(t, s.Release("abc"))
	assert.Nil(t, s.Release("never-tracked"))
}

func TestReleaseIfKeepsNewerHandle(t *testing.T) {
	t.Parallel()

	s := NewSupervisor()
	h1 := &Handle{done: make(chan struct{})}
	h2 := &Handle{done: make(chan struct{})}

	// The id now tracks h2; a release on behalf of h1 must not touch it.
	s.Track("abc", h2)
	s.ReleaseIf("abc", h1)
	assert.Same(t, h2, s.Release("abc"))

	// Matching handle is removed, and a second call is a no-op.
	s.Track("abc", h1)
	s.ReleaseIf("abc", h1)
	assert.Nil(t, s.Release("abc"))
	s.ReleaseIf("abc", h1)
}

func TestInterpreterSpawn(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Not executable on purpose; the interpreter runs it.
	path := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(path, []byte("exit 0\n"), 0o644))

	s := NewSupervisor()
	h, err := s.Spawn(dir, path, "/bin/sh")
	require.NoError(t, err)

	code, _ := h.Wait()
	assert.Equal(t, 0, code)
}
