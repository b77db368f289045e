package runlog

import (
	"math"
)

// tradingDaysPerYear is the conventional equity-market calendar used for
// annualizing returns and Sharpe ratios.
const tradingDaysPerYear = 252

// Metrics summarizes one run's performance.
type Metrics struct {
	TotalReturnPct  float64
	AnnualReturnPct float64
	SharpeRatio     float64
	MaxDrawdownPct  float64
	WinRate         float64
	TradeCount      int
}

// DrawdownPoint is one step of a drawdown curve. DrawdownPct is non-positive:
// zero at a new peak, negative below it.
type DrawdownPoint struct {
	Date        string
	DrawdownPct float64
	RunningPeak float64
	Trough      float64
}

// DrawdownCurve derives the drawdown series of an equity curve. The running
// peak is a non-decreasing maximum inclusive of the current point; the trough
// is the lowest equity seen since that peak.
func DrawdownCurve(dates []string, equity []float64) []DrawdownPoint {
	out := make([]DrawdownPoint, 0, len(equity))

	peak, trough := 0.0, 0.0
	for i, v := range equity {
		if v > peak {
			peak = v
			trough = v
		} else if v < trough {
			trough = v
		}

		dd := 0.0
		if peak > 0 {
			dd = (v - peak) / peak
		}

		date := ""
		if i < len(dates) {
			date = dates[i]
		}
		out = append(out, DrawdownPoint{
			Date:        date,
			DrawdownPct: dd * 100,
			RunningPeak: peak,
			Trough:      trough,
		})
	}
	return out
}

// MaxDrawdownPoint returns the deepest point of a drawdown curve. ok is
// false when the curve never dips below its running peak.
func MaxDrawdownPoint(points []DrawdownPoint) (DrawdownPoint, bool) {
	var worst DrawdownPoint
	found := false
	for _, p := range points {
		if p.DrawdownPct < worst.DrawdownPct {
			worst = p
			found = true
		}
	}
	return worst, found
}

// DrawdownPctSeries returns the positive percentage-decline form of the
// drawdown curve, the shape value.log parsing and portfolio totals use.
func DrawdownPctSeries(equity []float64) []float64 {
	out := make([]float64, 0, len(equity))

	peak := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - v) / peak * 100
		}
		out = append(out, dd)
	}
	return out
}

// computeMetrics derives summary performance numbers from a run's value
// series and closed trades. Degenerate inputs (empty series, zero variance,
// zero starting equity) yield zeros, never errors.
func computeMetrics(values ValueSeries, trades []Trade) Metrics {
	var m Metrics
	m.TradeCount = len(trades)

	wins := 0
	for _, tr := range trades {
		if tr.PnLNet > 0 {
			wins++
		}
	}
	if len(trades) > 0 {
		m.WinRate = float64(wins) / float64(len(trades))
	}

	for _, dd := range values.Drawdown {
		if dd > m.MaxDrawdownPct {
			m.MaxDrawdownPct = dd
		}
	}

	n := values.Len()
	if n < 2 || values.Equity[0] <= 0 {
		return m
	}

	total := values.Equity[n-1]/values.Equity[0] - 1
	m.TotalReturnPct = total * 100

	// Geometric scaling of total return onto a 252-trading-day year.
	growth := 1 + total
	if growth > 0 {
		m.AnnualReturnPct = (math.Pow(growth, float64(tradingDaysPerYear)/float64(n)) - 1) * 100
	}

	m.SharpeRatio = sharpe(values.Equity)
	return m
}

// sharpe annualizes the mean/stddev ratio of per-step simple returns by
// sqrt(252). Zero variance means zero Sharpe.
func sharpe(equity []float64) float64 {
	var returns []float64
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, equity[i]/equity[i-1]-1)
	}
	if len(returns) == 0 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}

// Result is the fully-parsed latest run of one strategy.
type Result struct {
	RunDir    string
	Values    ValueSeries
	Trades    []Trade
	Orders    []Order
	Data      DataSeries
	Positions []Position
	Info      *RunInfo
	Metrics   Metrics
}

// ParseAll locates the latest run directory under logsRoot and parses the
// complete file set plus derived metrics. ok is false when no run directory
// exists; everything else degrades to empty values.
func ParseAll(logsRoot string) (*Result, bool) {
	runDir, ok := FindLatestRunDir(logsRoot)
	if !ok {
		return nil, false
	}

	res := &Result{
		RunDir:    runDir,
		Values:    ParseValueLog(runDir),
		Trades:    ParseTradeLog(runDir),
		Orders:    ParseOrderLog(runDir),
		Data:      ParseDataLog(runDir),
		Positions: ParseCurrentPosition(runDir),
		Info:      ParseRunInfo(runDir),
	}
	res.Metrics = computeMetrics(res.Values, res.Trades)
	return res, true
}
