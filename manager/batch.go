package manager

import (
	"errors"
	"sort"

	"github.com/rustyeddy/fleet/instance"
)

// Outcome classifies one instance's result within a batch operation.
type Outcome string

const (
	OutcomeStarted Outcome = "started"
	OutcomeStopped Outcome = "stopped"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// ItemResult is the per-instance entry of a batch result.
type ItemResult struct {
	ID       string
	Strategy string
	Outcome  Outcome
	Err      string
}

// BatchResult reports a start-all/stop-all operation in full: one entry per
// instance, so a caller can see exactly which instances need attention.
type BatchResult struct {
	Succeeded int
	Failed    int
	Skipped   int
	Results   []ItemResult
}

// snapshotIDs returns all instance ids with their strategy and status at the
// time of the call, in creation order.
func (m *Manager) snapshotIDs() []ItemResult {
	m.mu.Lock()
	instances := m.store.Load()
	m.mu.Unlock()

	out := make([]ItemResult, 0, len(instances))
	for _, in := range instances {
		out = append(out, ItemResult{ID: in.ID, Strategy: in.StrategyID, Outcome: Outcome(in.Status)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StartAll starts every instance that is not already running. Instances are
// processed sequentially; one failure never aborts the batch.
func (m *Manager) StartAll() BatchResult {
	var res BatchResult
	for _, item := range m.snapshotIDs() {
		_, err := m.Start(item.ID)
		switch {
		case err == nil:
			item.Outcome = OutcomeStarted
			res.Succeeded++
		case errors.Is(err, ErrAlreadyRunning):
			item.Outcome = OutcomeSkipped
			res.Skipped++
		default:
			item.Outcome = OutcomeFailed
			item.Err = err.Error()
			res.Failed++
		}
		res.Results = append(res.Results, item)
	}
	return res
}

// StopAll stops every running instance. Already-stopped instances are
// skipped, not failed.
func (m *Manager) StopAll() BatchResult {
	var res BatchResult
	for _, item := range m.snapshotIDs() {
		if item.Outcome != Outcome(instance.StatusRunning) {
			item.Outcome = OutcomeSkipped
			res.Skipped++
			res.Results = append(res.Results, item)
			continue
		}
		_, err := m.Stop(item.ID)
		if err != nil {
			item.Outcome = OutcomeFailed
			item.Err = err.Error()
			res.Failed++
		} else {
			item.Outcome = OutcomeStopped
			res.Succeeded++
		}
		res.Results = append(res.Results, item)
	}
	return res
}
