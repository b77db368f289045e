// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	instance_id TEXT NOT NULL,
	strategy_id TEXT NOT NULL,
	strategy_name TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	stopped_at DATETIME NOT NULL,
	exit_code INTEGER NOT NULL,
	status TEXT NOT NULL,
	final_equity REAL NOT NULL,
	return_pct REAL NOT NULL,
	max_dd_pct REAL NOT NULL,
	trades INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	error TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_instance ON runs(instance_id);
CREATE INDEX IF NOT EXISTS idx_runs_stopped ON runs(stopped_at);
`
