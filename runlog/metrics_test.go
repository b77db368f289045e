package runlog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawdownCurveMonotonicPeak(t *testing.T) {
	t.Parallel()

	dates := []string{"d1", "d2", "d3", "d4", "d5"}
	equity := []float64{100, 120, 90, 110, 130}

	curve := DrawdownCurve(dates, equity)
	require.Len(t, curve, 5)

	prevPeak := 0.0
	for _, p := range curve {
		assert.GreaterOrEqual(t, p.RunningPeak, prevPeak)
		assert.LessOrEqual(t, p.DrawdownPct, 0.0)
		prevPeak = p.RunningPeak
	}

	// Drawdown is zero exactly when equity equals the running peak.
	assert.Equal(t, 0.0, curve[0].DrawdownPct)
	assert.Equal(t, 0.0, curve[1].DrawdownPct)
	assert.InDelta(t, -25.0, curve[2].DrawdownPct, 1e-9)
	assert.InDelta(t, -8.333333, curve[3].DrawdownPct, 1e-4)
	assert.Equal(t, 0.0, curve[4].DrawdownPct)

	// Trough tracks the lowest equity since the current peak.
	assert.Equal(t, 90.0, curve[2].Trough)
	assert.Equal(t, 90.0, curve[3].Trough)
	assert.Equal(t, 130.0, curve[4].Trough)
}

func TestMaxDrawdownPoint(t *testing.T) {
	t.Parallel()

	dates := []string{"d1", "d2", "d3", "d4", "d5"}
	equity := []float64{100, 120, 90, 110, 130}

	worst, ok := MaxDrawdownPoint(DrawdownCurve(dates, equity))
	require.True(t, ok)
	assert.Equal(t, "d3", worst.Date)
	assert.InDelta(t, -25.0, worst.DrawdownPct, 1e-9)
	assert.Equal(t, 120.0, worst.RunningPeak)
	assert.Equal(t, 90.0, worst.Trough)

	// A curve that never leaves its peak has no drawdown point.
	_, ok = MaxDrawdownPoint(DrawdownCurve([]string{"d1", "d2"}, []float64{100, 110}))
	assert.False(t, ok)

	_, ok = MaxDrawdownPoint(nil)
	assert.False(t, ok)
}

func TestDrawdownPctSeries(t *testing.T) {
	t.Parallel()

	got := DrawdownPctSeries([]float64{100, 110, 99})
	require.Len(t, got, 3)
	assert.Equal(t, 0.0, got[0])
	assert.Equal(t, 0.0, got[1])
	assert.InDelta(t, 10.0, got[2], 1e-9)

	assert.Empty(t, DrawdownPctSeries(nil))
}

func TestComputeMetrics(t *testing.T) {
	t.Parallel()

	values := ValueSeries{
		Dates:  []string{"d1", "d2", "d3"},
		Equity: []float64{10000, 10100, 10201},
	}
	values.Drawdown = DrawdownPctSeries(values.Equity)

	trades := []Trade{
		{PnLNet: 50},
		{PnLNet: -20},
		{PnLNet: 70},
		{PnLNet: 0},
	}

	m := computeMetrics(values, trades)
	assert.Equal(t, 4, m.TradeCount)
	assert.Equal(t, 0.5, m.WinRate)
	assert.InDelta(t, 2.01, m.TotalReturnPct, 1e-9)
	// 1% per step compounded over a 252-day year.
	assert.InDelta(t, (math.Pow(1.0201, 252.0/3)-1)*100, m.AnnualReturnPct, 1e-9)
	// Constant per-step return has zero variance, so Sharpe is zero.
	assert.Equal(t, 0.0, m.SharpeRatio)
	assert.Equal(t, 0.0, m.MaxDrawdownPct)
}

func TestComputeMetricsVolatileSeries(t *testing.T) {
	t.Parallel()

	values := ValueSeries{
		Dates:  []string{"d1", "d2", "d3", "d4"},
		Equity: []float64{10000, 10400, 9900, 10300},
	}
	values.Drawdown = DrawdownPctSeries(values.Equity)

	m := computeMetrics(values, nil)
	assert.NotEqual(t, 0.0, m.SharpeRatio)
	assert.False(t, math.IsNaN(m.SharpeRatio))
	assert.InDelta(t, (10400.0-9900.0)/10400.0*100, m.MaxDrawdownPct, 1e-9)
	assert.Equal(t, 0.0, m.WinRate)
}

func TestComputeMetricsDegenerate(t *testing.T) {
	t.Parallel()

	// Empty series.
	m := computeMetrics(ValueSeries{}, nil)
	assert.Equal(t, Metrics{}, m)

	// Single point: no returns to annualize.
	m = computeMetrics(ValueSeries{Dates: []string{"d1"}, Equity: []float64{100}}, nil)
	assert.Equal(t, 0.0, m.TotalReturnPct)
	assert.Equal(t, 0.0, m.SharpeRatio)

	// Zero starting equity must not divide.
	m = computeMetrics(ValueSeries{Dates: []string{"d1", "d2"}, Equity: []float64{0, 100}}, nil)
	assert.Equal(t, 0.0, m.TotalReturnPct)
}
