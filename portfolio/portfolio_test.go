package portfolio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/fleet/instance"
	"github.com/rustyeddy/fleet/strategy"
)

type staticLister struct {
	items []*instance.Instance
}

func (s staticLister) List() ([]*instance.Instance, error) { return s.items, nil }

type fixture struct {
	catalog *strategy.DirCatalog
	items   []*instance.Instance
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{catalog: strategy.NewDirCatalog(t.TempDir(), "run.sh")}
}

func (f *fixture) aggregator() *Aggregator {
	return New(staticLister{items: f.items}, f.catalog)
}

// addInstance registers an instance and writes its latest run files.
func (f *fixture) addInstance(t *testing.T, strategyID string, status instance.Status, files map[string]string) *instance.Instance {
	t.Helper()

	in := &instance.Instance{
		ID:           "inst-" + strategyID,
		StrategyID:   strategyID,
		StrategyName: strategyID,
		Status:       status,
	}
	f.items = append(f.items, in)

	if files != nil {
		dir := filepath.Join(f.catalog.LogsRoot(strategyID), "20260310_090000")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for name, body := range files {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
		}
	}
	return in
}

func valueLog(rows string) string {
	return "date\tequity\tcash\n" + rows
}

func TestSafeRound(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, SafeRound(math.NaN(), 2))
	assert.Equal(t, 0.0, SafeRound(math.Inf(1), 2))
	assert.Equal(t, 0.0, SafeRound(math.Inf(-1), 2))
	assert.Equal(t, 3.14, SafeRound(3.14159, 2))
	assert.Equal(t, -2.5, SafeRound(-2.5001, 2))
	assert.Equal(t, 10.0, SafeRound(10, 0))
}

func TestEquityCurveCarryForward(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addInstance(t, "s1", instance.StatusRunning, map[string]string{
		"value.log": valueLog("d1\t100\t100\nd2\t110\t100\n"),
	})
	f.addInstance(t, "s2", instance.StatusRunning, map[string]string{
		"value.log": valueLog("d1\t50\t50\nd2\t55\t50\nd3\t60\t50\n"),
	})

	curve, err := f.aggregator().EquityCurve()
	require.NoError(t, err)

	assert.Equal(t, []string{"d1", "d2", "d3"}, curve.Dates)
	// s1 has no d3 value: its 110 carries forward, 110+60=170.
	assert.Equal(t, []float64{150, 165, 170}, curve.TotalEquity)

	require.Len(t, curve.Strategies, 2)
	assert.Equal(t, []float64{100, 110, 110}, curve.Strategies[0].Equity)
	assert.Equal(t, []float64{50, 55, 60}, curve.Strategies[1].Equity)

	// Monotone rising total means zero drawdown throughout.
	assert.Equal(t, []float64{0, 0, 0}, curve.TotalDrawdown)
}

func TestEquityCurveSeedsFirstKnownValue(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addInstance(t, "early", instance.StatusRunning, map[string]string{
		"value.log": valueLog("d1\t100\t100\nd2\t90\t100\n"),
	})
	// Late starter: no data before d2, seeded with its first value at d1.
	f.addInstance(t, "late", instance.StatusRunning, map[string]string{
		"value.log": valueLog("d2\t200\t200\nd3\t210\t200\n"),
	})

	curve, err := f.aggregator().EquityCurve()
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2", "d3"}, curve.Dates)
	assert.Equal(t, []float64{300, 290, 300}, curve.TotalEquity)

	// Total dipped from 300 to 290: 10/3% drawdown at d2, recovered at d3.
	assert.InDelta(t, 10.0/3, curve.TotalDrawdown[1], 1e-9)
	assert.Equal(t, 0.0, curve.TotalDrawdown[2])
}

func TestEquityCurveNoData(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addInstance(t, "empty", instance.StatusStopped, nil)

	curve, err := f.aggregator().EquityCurve()
	require.NoError(t, err)
	assert.Empty(t, curve.Dates)
	require.Len(t, curve.Strategies, 1)
	assert.Empty(t, curve.Strategies[0].Equity)
}

func TestOverview(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addInstance(t, "s1", instance.StatusRunning, map[string]string{
		"value.log": valueLog("d1\t10000\t10000\nd2\t10500\t4000\n"),
		"trade.log": "ref\topendate\tclosedate\tdataname\tlong\tsize\tprice\tvalue\tcommission\tpnl\tpnlcomm\tbarlen\tisclosed\n" +
			"1\td1\td2\tBTCUSD\t1\t1\t100\t100\t1\t500\t499\t1\t1\n",
	})
	f.addInstance(t, "s2", instance.StatusStopped, map[string]string{
		"value.log": valueLog("d1\t5000\t5000\nd2\t4800\t4800\n"),
	})
	// No log directory at all: counted, contributes zeros.
	f.addInstance(t, "s3", instance.StatusStopped, nil)

	ov, err := f.aggregator().Overview()
	require.NoError(t, err)

	assert.Equal(t, 3, ov.StrategyCount)
	assert.Equal(t, 1, ov.RunningCount)
	assert.Equal(t, 15300.0, ov.TotalAssets)
	assert.Equal(t, 8800.0, ov.TotalCash)
	assert.Equal(t, 6500.0, ov.TotalPositionValue)
	assert.Equal(t, 300.0, ov.TotalPnL)
	assert.Equal(t, 2.0, ov.TotalPnLPct)

	require.Len(t, ov.Strategies, 3)
	s1 := ov.Strategies[0]
	assert.Equal(t, 10500.0, s1.Equity)
	assert.Equal(t, 6500.0, s1.PositionValue)
	assert.Equal(t, 5.0, s1.PnLPct)
	assert.Equal(t, 1, s1.TradeCount)
	assert.Equal(t, 1.0, s1.WinRate)

	s3 := ov.Strategies[2]
	assert.Equal(t, 0.0, s3.Equity)
	assert.Equal(t, 0.0, s3.PnLPct)
}

func TestPositions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addInstance(t, "s1", instance.StatusRunning, map[string]string{
		"current_position.json": `[
			{"data_name":"BTCUSD","size":0.5,"price":43210,"value":21605},
			{"data_name":"ETHUSD","size":-2,"price":2300,"value":-4600},
			{"data_name":"SOLUSD","size":0,"price":0,"value":0}
		]`,
	})
	f.addInstance(t, "s2", instance.StatusStopped, nil)

	rows, err := f.aggregator().Positions()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "inst-s1", rows[0].InstanceID)
	assert.Equal(t, "long", rows[0].Direction)
	assert.Equal(t, "short", rows[1].Direction)
	assert.Equal(t, "flat", rows[2].Direction)
}

func TestTradesSortedAndLimited(t *testing.T) {
	t.Parallel()

	header := "ref\topendate\tclosedate\tdataname\tlong\tsize\tprice\tvalue\tcommission\tpnl\tpnlcomm\tbarlen\tisclosed\n"

	f := newFixture(t)
	f.addInstance(t, "s1", instance.StatusRunning, map[string]string{
		"trade.log": header +
			"1\t2026-03-01\t2026-03-02\tBTCUSD\t1\t1\t100\t100\t0\t10\t10\t1\t1\n" +
			"2\t2026-03-05\t2026-03-08\tBTCUSD\t1\t1\t100\t100\t0\t20\t20\t3\t1\n",
	})
	f.addInstance(t, "s2", instance.StatusRunning, map[string]string{
		"trade.log": header +
			"1\t2026-03-03\t2026-03-05\tETHUSD\t0\t1\t100\t100\t0\t-5\t-5\t2\t1\n",
	})

	rows, err := f.aggregator().Trades(0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2026-03-08", rows[0].CloseDate)
	assert.Equal(t, "2026-03-05", rows[1].CloseDate)
	assert.Equal(t, "2026-03-02", rows[2].CloseDate)
	assert.Equal(t, "inst-s2", rows[1].InstanceID)

	limited, err := f.aggregator().Trades(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestAllocation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addInstance(t, "s1", instance.StatusRunning, map[string]string{
		"value.log": valueLog("d1\t7500\t7500\n"),
	})
	f.addInstance(t, "s2", instance.StatusRunning, map[string]string{
		"value.log": valueLog("d1\t2500\t2500\n"),
	})
	f.addInstance(t, "s3", instance.StatusStopped, nil)

	alloc, err := f.aggregator().Allocation()
	require.NoError(t, err)

	assert.Equal(t, 10000.0, alloc.Total)
	require.Len(t, alloc.Strategies, 3)
	assert.Equal(t, 75.0, alloc.Strategies[0].WeightPct)
	assert.Equal(t, 25.0, alloc.Strategies[1].WeightPct)
	assert.Equal(t, 0.0, alloc.Strategies[2].WeightPct)
}

func TestAllocationZeroTotal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addInstance(t, "s1", instance.StatusStopped, nil)

	alloc, err := f.aggregator().Allocation()
	require.NoError(t, err)
	assert.Equal(t, 0.0, alloc.Total)
	require.Len(t, alloc.Strategies, 1)
	assert.Equal(t, 0.0, alloc.Strategies[0].WeightPct)
}
