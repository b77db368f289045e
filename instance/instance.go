package instance

import "time"

// Status is the lifecycle state of a managed strategy process.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusError   Status = "error"
)

// Instance is one registered trading-strategy process and its metadata.
//
// Invariant: StatusRunning implies PID is set and was observed alive at the
// last liveness refresh; any other status implies PID is nil.
type Instance struct {
	ID           string            `json:"id"`
	StrategyID   string            `json:"strategy_id"`
	StrategyName string            `json:"strategy_name"`
	Status       Status            `json:"status"`
	PID          *int              `json:"pid"`
	Error        *string           `json:"error"`
	Params       map[string]string `json:"params,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    *time.Time        `json:"started_at"`
	StoppedAt    *time.Time        `json:"stopped_at"`

	// LogDir is recomputed on every read from the strategy's logs folder;
	// the stored value is a convenience, not the source of truth.
	LogDir string `json:"log_dir,omitempty"`
}

// Running reports whether the record claims a live process.
func (in *Instance) Running() bool {
	return in.Status == StatusRunning && in.PID != nil
}

// MarkStopped clears the process fields and stamps the stop time.
func (in *Instance) MarkStopped(at time.Time) {
	in.Status = StatusStopped
	in.PID = nil
	in.StoppedAt = &at
}

// MarkError records a failure diagnostic and stamps the stop time.
func (in *Instance) MarkError(msg string, at time.Time) {
	in.Status = StatusError
	in.PID = nil
	in.Error = &msg
	in.StoppedAt = &at
}
