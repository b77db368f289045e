// Package journal archives completed strategy runs so history survives log
// directory compression and instance removal.
package journal

import "time"

// RunRecord summarizes one completed execution of a strategy process.
// It is written by the manager's exit-watcher once the process has exited
// and its final log directory has been parsed.
type RunRecord struct {
	RunID        string
	InstanceID   string
	StrategyID   string
	StrategyName string
	StartedAt    time.Time
	StoppedAt    time.Time
	ExitCode     int
	Status       string // stopped or error
	FinalEquity  float64
	ReturnPct    float64
	MaxDDPct     float64
	Trades       int
	WinRate      float64
	Error        string // stderr tail on failure, empty otherwise
}

// Recorder is the write side of the journal. The manager treats recording as
// best effort: a journal failure never fails a lifecycle operation.
type Recorder interface {
	RecordRun(RunRecord) error
}
