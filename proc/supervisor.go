package proc

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// StderrTailChars is how much captured stderr is kept as a crash diagnostic.
const StderrTailChars = 500

// stderr capture is bounded well above the reported tail so multi-byte
// boundaries and late writes don't truncate the useful part.
const captureLimit = 4096

// Handle is a live process started during the current manager run.
// The in-memory handle map is not durable: after a manager restart only PID
// probing can tell whether a recorded process still exists.
type Handle struct {
	cmd    *exec.Cmd
	pid    int
	stderr *tailBuffer

	waitOnce sync.Once
	done     chan struct{}
	exitCode int
}

// PID returns the OS process id of the handle.
func (h *Handle) PID() int { return h.pid }

// Wait blocks until the process exits and returns its exit code plus the
// tail of captured stderr. Safe to call from multiple goroutines; the
// underlying wait happens once.
func (h *Handle) Wait() (int, string) {
	h.waitOnce.Do(func() {
		err := h.cmd.Wait()
		switch e := err.(type) {
		case nil:
			h.exitCode = 0
		case *exec.ExitError:
			h.exitCode = e.ExitCode()
		default:
			h.exitCode = -1
		}
		close(h.done)
	})
	<-h.done
	return h.exitCode, h.stderr.Tail(StderrTailChars)
}

// Exited reports whether the process exited within d. It never reaps the
// process itself; some goroutine must be in Wait for the done channel to
// close.
func (h *Handle) Exited(d time.Duration) bool {
	select {
	case <-h.done:
		return true
	case <-time.After(d):
		return false
	}
}

// Supervisor owns the instance-id to process-handle mapping for processes
// started during the current manager run, plus PID-level liveness probing
// that also works for processes inherited from a previous run.
type Supervisor struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewSupervisor returns an empty supervisor.
func NewSupervisor() *Supervisor {
	return &Supervisor{handles: map[string]*Handle{}}
}

// Spawn launches the entry point with the strategy directory as cwd,
// capturing stdout and stderr. A missing entry point is a validation
// failure, not a spawn failure.
func (s *Supervisor) Spawn(dir, entry, interpreter string) (*Handle, error) {
	if _, err := os.Stat(entry); err != nil {
		return nil, fmt.Errorf("entry point not found: %s: %w", entry, err)
	}

	var cmd *exec.Cmd
	if interpreter != "" {
		cmd = exec.Command(interpreter, entry)
	} else {
		cmd = exec.Command(entry)
	}
	cmd.Dir = dir

	stderr := newTailBuffer(captureLimit)
	cmd.Stdout = newTailBuffer(captureLimit)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", entry, err)
	}

	return &Handle{
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		stderr: stderr,
		done:   make(chan struct{}),
	}, nil
}

// Track associates a handle with an instance id for this manager run.
func (s *Supervisor) Track(id string, h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles[id] = h
}

// Release removes and returns the handle for an instance id, or nil when
// the process was not started during this manager run.
func (s *Supervisor) Release(id string) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.handles[id]
	delete(s.handles, id)
	return h
}

// ReleaseIf removes the handle for an instance id only while it is still h.
// An exit-watcher for an earlier run must not drop the handle a newer run of
// the same instance has tracked since.
func (s *Supervisor) ReleaseIf(id string, h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles[id] == h {
		delete(s.handles, id)
	}
}

// Alive probes the OS for process existence with signal 0. Any lookup
// failure means "not alive"; it is never surfaced to the caller.
func (s *Supervisor) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}

// Terminate sends a graceful termination signal. A process that is already
// gone is not an error.
func (s *Supervisor) Terminate(pid int) {
	if p, err := os.FindProcess(pid); err == nil {
		_ = p.Signal(syscall.SIGTERM)
	}
}

// Kill forcefully ends the process. Used after the graceful stop timeout.
func (s *Supervisor) Kill(pid int) {
	if p, err := os.FindProcess(pid); err == nil {
		_ = p.Kill()
	}
}
