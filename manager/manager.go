// Package manager owns the lifecycle of strategy instances: registration,
// process start/stop, liveness reconciliation, and the background watcher
// that records how each run ended.
package manager

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/fleet/instance"
	"github.com/rustyeddy/fleet/journal"
	"github.com/rustyeddy/fleet/pkg/id"
	"github.com/rustyeddy/fleet/proc"
	"github.com/rustyeddy/fleet/runlog"
	"github.com/rustyeddy/fleet/strategy"
)

var (
	// ErrNotFound means no instance exists under the given id.
	ErrNotFound = errors.New("instance not found")
	// ErrAlreadyRunning means Start was called while the recorded process
	// is still alive.
	ErrAlreadyRunning = errors.New("instance already running")
)

// Options tunes manager construction. The zero value is usable.
type Options struct {
	// StopTimeout bounds the graceful-exit wait before Stop escalates to a
	// kill. Defaults to 5s.
	StopTimeout time.Duration
	// Interpreter launches strategy entry points; empty execs them directly.
	Interpreter string
	// Journal, when set, receives a RunRecord for every completed run.
	Journal journal.Recorder
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Manager is the lifecycle controller. All instance-state writes go through
// it; the store itself has no locking, so the mutex serializes this
// process's read-modify-write cycles. A second manager process writing the
// same document remains last-writer-wins.
type Manager struct {
	store   *instance.Store
	sup     *proc.Supervisor
	catalog *strategy.DirCatalog
	jrnl    journal.Recorder
	log     *slog.Logger

	stopTimeout time.Duration
	interpreter string

	mu sync.Mutex
}

// New builds a manager and immediately reconciles persisted state against
// the OS: any instance recorded as running whose pid is gone (a manager
// crash or restart lost the in-memory handle) is downgraded to stopped.
func New(store *instance.Store, sup *proc.Supervisor, catalog *strategy.DirCatalog, opts Options) *Manager {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := &Manager{
		store:       store,
		sup:         sup,
		catalog:     catalog,
		jrnl:        opts.Journal,
		log:         opts.Logger,
		stopTimeout: opts.StopTimeout,
		interpreter: opts.Interpreter,
	}
	m.reconcile()
	return m
}

// reconcile is the boot-time liveness sweep.
func (m *Manager) reconcile() {
	m.mu.Lock()
	defer m.mu.Unlock()

	instances := m.store.Load()
	changed := 0
	for _, in := range instances {
		if in.Status != instance.StatusRunning {
			continue
		}
		if !in.Running() || !m.sup.Alive(*in.PID) {
			in.MarkStopped(time.Now().UTC())
			m.refreshLogDir(in)
			changed++
		}
	}
	if changed > 0 {
		if err := m.store.Save(instances); err != nil {
			m.log.Error("reconcile: persist failed", "error", err)
			return
		}
		m.log.Info("reconciled stale instances", "count", changed)
	}
}

// refreshLogDir recomputes the latest run directory for an instance. The
// stored value is advisory only.
func (m *Manager) refreshLogDir(in *instance.Instance) {
	if dir, ok := runlog.FindLatestRunDir(m.catalog.LogsRoot(in.StrategyID)); ok {
		in.LogDir = dir
	} else {
		in.LogDir = ""
	}
}

// Add registers a new instance for a strategy. The strategy's entry point
// must exist on disk; its display name comes from the catalog, falling back
// to the strategy id.
func (m *Manager) Add(strategyID string, params map[string]string) (*instance.Instance, error) {
	if err := m.catalog.Validate(strategyID); err != nil {
		return nil, err
	}

	name := strategyID
	if info, ok := m.catalog.Lookup(strategyID); ok {
		name = info.Name
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	in := &instance.Instance{
		ID:           id.New(),
		StrategyID:   strategyID,
		StrategyName: name,
		Status:       instance.StatusStopped,
		Params:       params,
		CreatedAt:    time.Now().UTC(),
	}
	m.refreshLogDir(in)

	instances := m.store.Load()
	instances[in.ID] = in
	if err := m.store.Save(instances); err != nil {
		return nil, err
	}

	m.log.Info("instance added", "id", in.ID, "strategy", strategyID)
	return in, nil
}

// Get returns one instance with a refreshed log directory. It does not
// refresh liveness; List does that.
func (m *Manager) Get(instanceID string) (*instance.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	instances := m.store.Load()
	in, ok := instances[instanceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, instanceID)
	}
	m.refreshLogDir(in)
	return in, nil
}

// List returns every instance, refreshing liveness first: any recorded
// running instance whose pid is dead is downgraded to stopped. The corrected
// set is persisted before returning. Output is ordered by creation.
func (m *Manager) List() ([]*instance.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	instances := m.store.Load()
	for _, in := range instances {
		if in.Status == instance.StatusRunning {
			if !in.Running() || !m.sup.Alive(*in.PID) {
				in.MarkStopped(time.Now().UTC())
				m.log.Info("instance process gone, marking stopped", "id", in.ID)
			}
		}
		m.refreshLogDir(in)
	}
	if err := m.store.Save(instances); err != nil {
		return nil, err
	}

	out := make([]*instance.Instance, 0, len(instances))
	for _, in := range instances {
		out = append(out, in)
	}
	// ULID ids sort by creation time.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Remove deletes an instance, force-stopping it first when running. It
// reports false for an unknown id.
func (m *Manager) Remove(instanceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	instances := m.store.Load()
	in, ok := instances[instanceID]
	if !ok {
		return false, nil
	}

	if in.Running() {
		m.forceStop(instanceID, *in.PID)
	}

	delete(instances, instanceID)
	if err := m.store.Save(instances); err != nil {
		return false, err
	}

	m.log.Info("instance removed", "id", instanceID)
	return true, nil
}

// forceStop terminates without the graceful-wait ceremony. Caller holds mu.
func (m *Manager) forceStop(instanceID string, pid int) {
	h := m.sup.Release(instanceID)
	if m.sup.Alive(pid) {
		m.sup.Terminate(pid)
	}
	if h != nil && !h.Exited(m.stopTimeout) {
		m.sup.Kill(pid)
	}
}

// Start launches an instance's strategy process and registers the background
// exit-watcher. Starting an instance whose process is still alive fails with
// ErrAlreadyRunning; a stale running record with a dead pid starts normally.
func (m *Manager) Start(instanceID string) (*instance.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	instances := m.store.Load()
	in, ok := instances[instanceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, instanceID)
	}
	if in.Running() && m.sup.Alive(*in.PID) {
		return nil, fmt.Errorf("%w: %s (pid %d)", ErrAlreadyRunning, instanceID, *in.PID)
	}

	sid := in.StrategyID
	h, err := m.sup.Spawn(m.catalog.Dir(sid), m.catalog.EntryPointPath(sid), m.interpreter)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pid := h.PID()
	in.Status = instance.StatusRunning
	in.PID = &pid
	in.Error = nil
	in.StartedAt = &now
	m.refreshLogDir(in)

	if err := m.store.Save(instances); err != nil {
		// The process is already running; bring it back down rather than
		// leak an untracked child.
		m.sup.Kill(pid)
		go h.Wait()
		return nil, err
	}

	m.sup.Track(instanceID, h)
	go m.watch(instanceID, h, now)

	m.log.Info("instance started", "id", instanceID, "strategy", sid, "pid", pid)
	return in, nil
}

// Stop brings a running instance down: graceful termination first, then a
// kill once the stop timeout passes. Stopping an already-stopped instance is
// a safe no-op that returns the unchanged record.
func (m *Manager) Stop(instanceID string) (*instance.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	instances := m.store.Load()
	in, ok := instances[instanceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, instanceID)
	}
	if !in.Running() {
		return in, nil
	}

	pid := *in.PID
	h := m.sup.Release(instanceID)

	if m.sup.Alive(pid) {
		m.sup.Terminate(pid)
	}

	exitCode := 0
	stderrTail := ""
	if h != nil {
		if !h.Exited(m.stopTimeout) {
			m.log.Warn("graceful stop timed out, killing", "id", instanceID, "pid", pid)
			m.sup.Kill(pid)
		}
		exitCode, stderrTail = h.Wait()
	} else {
		// Inherited from a previous manager run: no handle to wait on,
		// only the pid to poll.
		deadline := time.Now().Add(m.stopTimeout)
		for m.sup.Alive(pid) && time.Now().Before(deadline) {
			time.Sleep(50 * time.Millisecond)
		}
		if m.sup.Alive(pid) {
			m.log.Warn("graceful stop timed out, killing", "id", instanceID, "pid", pid)
			m.sup.Kill(pid)
		}
	}

	started := in.StartedAt
	in.MarkStopped(time.Now().UTC())
	m.refreshLogDir(in)
	if err := m.store.Save(instances); err != nil {
		return nil, err
	}

	m.recordRun(in, started, exitCode, instance.StatusStopped, stderrTail)
	m.log.Info("instance stopped", "id", instanceID, "pid", pid)
	return in, nil
}

// watch is the background exit-watcher: one goroutine per started process.
// It is the only writer of instance state that is not driven by a caller
// request, so it re-reads the store and tolerates the instance having been
// stopped or removed in the meantime.
func (m *Manager) watch(instanceID string, h *proc.Handle, startedAt time.Time) {
	exitCode, stderrTail := h.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Only drop the handle this watcher owns. Stop followed by a quick
	// restart tracks a fresh handle under the same id before the stale
	// watcher wakes; that one belongs to the new run.
	m.sup.ReleaseIf(instanceID, h)

	instances := m.store.Load()
	in, ok := instances[instanceID]
	if !ok {
		// Removed while running; nothing to update.
		return
	}
	if in.PID == nil || *in.PID != h.PID() {
		// A Stop (or a newer Start) already settled this record.
		return
	}

	now := time.Now().UTC()
	status := instance.StatusStopped
	if exitCode != 0 {
		status = instance.StatusError
		in.MarkError(stderrTail, now)
	} else {
		in.MarkStopped(now)
	}
	m.refreshLogDir(in)

	if err := m.store.Save(instances); err != nil {
		m.log.Error("exit-watcher: persist failed", "id", instanceID, "error", err)
		return
	}

	m.recordRun(in, &startedAt, exitCode, status, stderrTail)
	m.log.Info("instance exited", "id", instanceID, "exit_code", exitCode, "status", string(status))
}

// recordRun archives a completed run. Best effort: journal failures are
// logged, never raised.
func (m *Manager) recordRun(in *instance.Instance, startedAt *time.Time, exitCode int, status instance.Status, stderrTail string) {
	if m.jrnl == nil {
		return
	}

	rec := journal.RunRecord{
		RunID:        id.New(),
		InstanceID:   in.ID,
		StrategyID:   in.StrategyID,
		StrategyName: in.StrategyName,
		StoppedAt:    time.Now().UTC(),
		ExitCode:     exitCode,
		Status:       string(status),
	}
	if startedAt != nil {
		rec.StartedAt = *startedAt
	}
	if status == instance.StatusError {
		rec.Error = stderrTail
	}

	if res, ok := runlog.ParseAll(m.catalog.LogsRoot(in.StrategyID)); ok {
		if n := res.Values.Len(); n > 0 {
			rec.FinalEquity = res.Values.Equity[n-1]
		}
		rec.ReturnPct = res.Metrics.TotalReturnPct
		rec.MaxDDPct = res.Metrics.MaxDrawdownPct
		rec.Trades = res.Metrics.TradeCount
		rec.WinRate = res.Metrics.WinRate
	}

	if err := m.jrnl.RecordRun(rec); err != nil {
		m.log.Error("journal: record run failed", "id", in.ID, "error", err)
	}
}
