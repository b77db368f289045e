// Package runlog reads the on-disk log directory a strategy process writes
// during a run and turns it into typed series and records.
//
// Log directories are produced by a concurrently-running external process, so
// every parser here degrades to empty/zero values instead of returning
// errors: a partially-written file must never crash an analytics read.
package runlog

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// File names inside one run directory. TSV files carry a header row;
// the rest are JSON.
const (
	ValueLogFile        = "value.log"
	TradeLogFile        = "trade.log"
	OrderLogFile        = "order.log"
	DataLogFile         = "data.log"
	PositionLogFile     = "position.log"
	RunInfoFile         = "run_info.json"
	CurrentPositionFile = "current_position.json"
)

// FindLatestRunDir returns the run directory that sorts last by name under a
// strategy's logs root. Run directories are named so lexicographic order
// equals chronological order.
func FindLatestRunDir(logsRoot string) (string, bool) {
	entries, err := os.ReadDir(logsRoot)
	if err != nil {
		return "", false
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)
	return filepath.Join(logsRoot, names[len(names)-1]), true
}

// table is one parsed TSV file: a header-name index plus data rows.
type table struct {
	cols map[string]int
	rows [][]string
}

// readTable parses a tab-separated file with a header row. Missing or empty
// files yield an empty table. Short rows are kept; lookups off the end of a
// row default like any other malformed field.
func readTable(path string) table {
	t := table{cols: map[string]int{}}

	data, err := os.ReadFile(path)
	if err != nil {
		return t
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(t.cols) == 0 {
			for j, name := range fields {
				t.cols[strings.TrimSpace(name)] = j
			}
			continue
		}
		t.rows = append(t.rows, fields)
	}
	return t
}

// str returns the named column of a row, or "" when absent.
func (t table) str(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// num returns the named column as a float, defaulting to 0 on malformed
// values. NaN and ±Inf coerce to the default too: they would otherwise
// poison every aggregate downstream.
func (t table) num(row []string, col string) float64 {
	v, err := strconv.ParseFloat(t.str(row, col), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0
	}
	return v
}

// integer returns the named column as an int, defaulting to 0.
func (t table) integer(row []string, col string) int {
	v, err := strconv.Atoi(t.str(row, col))
	if err != nil {
		return 0
	}
	return v
}

// flag reports whether the named column holds a truthy marker.
func (t table) flag(row []string, col string) bool {
	switch strings.ToLower(t.str(row, col)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// ValueSeries is the per-day account value curve of one run.
type ValueSeries struct {
	Dates    []string
	Equity   []float64
	Cash     []float64
	Drawdown []float64 // percent decline from running peak, >= 0
}

// Len returns the number of logged trading days.
func (v ValueSeries) Len() int { return len(v.Dates) }

// ParseValueLog reads value.log: one date/equity/cash triple per row, and
// derives the drawdown percentage series with an incrementally-tracked
// running peak.
func ParseValueLog(runDir string) ValueSeries {
	t := readTable(filepath.Join(runDir, ValueLogFile))

	var out ValueSeries
	peak := 0.0
	for _, row := range t.rows {
		date := t.str(row, "date")
		if date == "" {
			continue
		}
		equity := t.num(row, "equity")
		cash := t.num(row, "cash")

		if equity > peak {
			peak = equity
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - equity) / peak * 100
		}

		out.Dates = append(out.Dates, date)
		out.Equity = append(out.Equity, equity)
		out.Cash = append(out.Cash, cash)
		out.Drawdown = append(out.Drawdown, dd)
	}
	return out
}

// Trade is one closed round-trip trade. Open trades never appear here.
type Trade struct {
	Ref        int
	OpenDate   string
	CloseDate  string
	DataName   string
	Direction  string // long or short
	Size       float64
	Price      float64
	Value      float64
	Commission float64
	PnL        float64
	PnLNet     float64 // after commission
	BarsHeld   int
}

// ParseTradeLog reads trade.log, emitting only rows flagged closed, in row
// order. Direction comes from the "long" flag column.
func ParseTradeLog(runDir string) []Trade {
	t := readTable(filepath.Join(runDir, TradeLogFile))

	var out []Trade
	for _, row := range t.rows {
		if !t.flag(row, "isclosed") {
			continue
		}
		dir := "short"
		if t.flag(row, "long") {
			dir = "long"
		}
		out = append(out, Trade{
			Ref:        t.integer(row, "ref"),
			OpenDate:   t.str(row, "opendate"),
			CloseDate:  t.str(row, "closedate"),
			DataName:   t.str(row, "dataname"),
			Direction:  dir,
			Size:       round(t.num(row, "size"), 4),
			Price:      round(t.num(row, "price"), 4),
			Value:      round(t.num(row, "value"), 2),
			Commission: round(t.num(row, "commission"), 2),
			PnL:        round(t.num(row, "pnl"), 2),
			PnLNet:     round(t.num(row, "pnlcomm"), 2),
			BarsHeld:   t.integer(row, "barlen"),
		})
	}
	return out
}

// Order is one completed order event.
type Order struct {
	Ref      int
	Date     string
	DataName string
	Type     string // buy or sell
	Status   string
	Size     float64
	Price    float64
	Value    float64
}

// ParseOrderLog reads order.log, emitting only rows whose status is
// "Completed".
func ParseOrderLog(runDir string) []Order {
	t := readTable(filepath.Join(runDir, OrderLogFile))

	var out []Order
	for _, row := range t.rows {
		status := t.str(row, "status")
		if status != "Completed" {
			continue
		}
		out = append(out, Order{
			Ref:      t.integer(row, "ref"),
			Date:     t.str(row, "date"),
			DataName: t.str(row, "dataname"),
			Type:     t.str(row, "type"),
			Status:   status,
			Size:     round(t.num(row, "size"), 4),
			Price:    round(t.num(row, "price"), 4),
			Value:    round(t.num(row, "value"), 2),
		})
	}
	return out
}

// Candle is one OHLC bar from the data log.
type Candle struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// DataSeries is the market data and indicator output of one run. Columns
// outside the standard set are strategy-defined indicators, collected
// dynamically by column name.
type DataSeries struct {
	Dates      []string
	OHLC       []Candle
	Volumes    []float64
	Indicators map[string][]float64
}

// standardDataCols is the fixed column set of data.log; everything else is
// an indicator series.
var standardDataCols = map[string]bool{
	"log_time":     true,
	"dt":           true,
	"data_name":    true,
	"open":         true,
	"high":         true,
	"low":          true,
	"close":        true,
	"volume":       true,
	"openinterest": true,
}

// ParseDataLog reads data.log. Indicator columns are discovered from the
// header row at parse time, not from a fixed schema.
func ParseDataLog(runDir string) DataSeries {
	t := readTable(filepath.Join(runDir, DataLogFile))

	out := DataSeries{Indicators: map[string][]float64{}}

	var indicatorCols []string
	for name := range t.cols {
		if !standardDataCols[name] {
			indicatorCols = append(indicatorCols, name)
		}
	}
	sort.Strings(indicatorCols)

	for _, row := range t.rows {
		out.Dates = append(out.Dates, t.str(row, "dt"))
		out.OHLC = append(out.OHLC, Candle{
			Open:  t.num(row, "open"),
			High:  t.num(row, "high"),
			Low:   t.num(row, "low"),
			Close: t.num(row, "close"),
		})
		out.Volumes = append(out.Volumes, t.num(row, "volume"))
		for _, name := range indicatorCols {
			out.Indicators[name] = append(out.Indicators[name], t.num(row, name))
		}
	}
	return out
}

// Position is one open position snapshot from current_position.json.
type Position struct {
	DataName string  `json:"data_name"`
	Size     float64 `json:"size"`
	Price    float64 `json:"price"`
	Value    float64 `json:"value"`
}

// ParseCurrentPosition reads current_position.json. A missing or unparsable
// file yields an empty slice: the writer may be mid-write.
func ParseCurrentPosition(runDir string) []Position {
	data, err := os.ReadFile(filepath.Join(runDir, CurrentPositionFile))
	if err != nil {
		return nil
	}
	var out []Position
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// RunInfo is the optional metadata a strategy process writes at startup.
type RunInfo struct {
	Strategy  string            `json:"strategy"`
	StartedAt string            `json:"started_at"`
	Params    map[string]string `json:"params"`
}

// ParseRunInfo reads run_info.json, or nil when absent or unparsable.
func ParseRunInfo(runDir string) *RunInfo {
	data, err := os.ReadFile(filepath.Join(runDir, RunInfoFile))
	if err != nil {
		return nil
	}
	var info RunInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil
	}
	return &info
}

// round rounds v to prec decimal places.
func round(v float64, prec int) float64 {
	scale := math.Pow10(prec)
	return math.Round(v*scale) / scale
}
