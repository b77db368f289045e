package journal

import (
	"database/sql"
	"fmt"
)

const runColumns = `run_id, instance_id, strategy_id, strategy_name, started_at, stopped_at,
	exit_code, status, final_equity, return_pct, max_dd_pct, trades, win_rate, error`

func scanRun(row interface{ Scan(dest ...any) error }) (RunRecord, error) {
	var r RunRecord
	err := row.Scan(
		&r.RunID,
		&r.InstanceID,
		&r.StrategyID,
		&r.StrategyName,
		&r.StartedAt,
		&r.StoppedAt,
		&r.ExitCode,
		&r.Status,
		&r.FinalEquity,
		&r.ReturnPct,
		&r.MaxDDPct,
		&r.Trades,
		&r.WinRate,
		&r.Error,
	)
	return r, err
}

// GetRun returns a single run record by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	row := j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)

	rec, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, fmt.Errorf("run %q not found", runID)
		}
		return RunRecord{}, err
	}
	return rec, nil
}

// ListRuns returns the most recently stopped runs, newest first, up to limit.
// A limit of 0 or less means no limit.
func (j *SQLite) ListRuns(limit int) ([]RunRecord, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY stopped_at DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRunsByInstance returns every archived run of one instance, newest
// first.
func (j *SQLite) ListRunsByInstance(instanceID string) ([]RunRecord, error) {
	rows, err := j.db.Query(
		`SELECT `+runColumns+` FROM runs WHERE instance_id = ? ORDER BY stopped_at DESC`,
		instanceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
