package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores run records in a single-file database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the journal database at path and
// applies the schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// RecordRun inserts one completed-run summary.
func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, instance_id, strategy_id, strategy_name, started_at, stopped_at,
		 exit_code, status, final_equity, return_pct, max_dd_pct, trades, win_rate, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.InstanceID, r.StrategyID, r.StrategyName, r.StartedAt, r.StoppedAt,
		r.ExitCode, r.Status, r.FinalEquity, r.ReturnPct, r.MaxDDPct, r.Trades, r.WinRate, r.Error,
	)
	return err
}

// Close releases the underlying database handle.
func (j *SQLite) Close() error {
	return j.db.Close()
}
