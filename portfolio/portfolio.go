// Package portfolio combines every instance's run logs into cross-strategy
// views. It never talks to the process supervisor: instances provide
// identity, the log directories provide the numbers, and an instance with no
// logs contributes zeros but is still counted.
package portfolio

import (
	"math"
	"sort"

	"github.com/rustyeddy/fleet/instance"
	"github.com/rustyeddy/fleet/runlog"
	"github.com/rustyeddy/fleet/strategy"
)

// Lister supplies the instance set. The manager satisfies this; its List
// also refreshes liveness, so running counts here are trustworthy.
type Lister interface {
	List() ([]*instance.Instance, error)
}

// Aggregator produces portfolio-level analytics across all instances.
type Aggregator struct {
	lister  Lister
	catalog *strategy.DirCatalog
}

// New returns an aggregator over the given instance source and catalog.
func New(lister Lister, catalog *strategy.DirCatalog) *Aggregator {
	return &Aggregator{lister: lister, catalog: catalog}
}

// SafeRound rounds v to prec decimal places, mapping NaN and ±Inf to 0.
// Per-instance series may be empty, so any division upstream can produce
// non-finite values.
func SafeRound(v float64, prec int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0
	}
	scale := math.Pow10(prec)
	return math.Round(v*scale) / scale
}

// loadResults parses each instance's latest run independently. A nil result
// marks an instance with no run directory.
func (a *Aggregator) loadResults() ([]*instance.Instance, []*runlog.Result, error) {
	instances, err := a.lister.List()
	if err != nil {
		return nil, nil, err
	}

	results := make([]*runlog.Result, len(instances))
	for i, in := range instances {
		if res, ok := runlog.ParseAll(a.catalog.LogsRoot(in.StrategyID)); ok {
			results[i] = res
		}
	}
	return instances, results, nil
}

// StrategySummary is one instance's line in the portfolio overview.
type StrategySummary struct {
	InstanceID      string
	StrategyID      string
	StrategyName    string
	Status          instance.Status
	Equity          float64
	Cash            float64
	PositionValue   float64
	PnL             float64
	PnLPct          float64
	AnnualReturnPct float64
	SharpeRatio     float64
	MaxDrawdownPct  float64
	WinRate         float64
	TradeCount      int
}

// Overview is the portfolio-wide headline view.
type Overview struct {
	TotalAssets        float64
	TotalCash          float64
	TotalPositionValue float64
	TotalPnL           float64
	TotalPnLPct        float64
	StrategyCount      int
	RunningCount       int
	Strategies         []StrategySummary
}

// Overview sums each instance's final (last-dated) equity and cash.
// Percentage fields are guarded against zero and negative denominators.
func (a *Aggregator) Overview() (Overview, error) {
	instances, results, err := a.loadResults()
	if err != nil {
		return Overview{}, err
	}

	var ov Overview
	ov.StrategyCount = len(instances)

	totalInitial := 0.0
	for i, in := range instances {
		if in.Status == instance.StatusRunning {
			ov.RunningCount++
		}

		sum := StrategySummary{
			InstanceID:   in.ID,
			StrategyID:   in.StrategyID,
			StrategyName: in.StrategyName,
			Status:       in.Status,
		}

		if res := results[i]; res != nil && res.Values.Len() > 0 {
			n := res.Values.Len()
			final := res.Values.Equity[n-1]
			initial := res.Values.Equity[0]

			sum.Equity = SafeRound(final, 2)
			sum.Cash = SafeRound(res.Values.Cash[n-1], 2)
			sum.PositionValue = SafeRound(final-res.Values.Cash[n-1], 2)
			sum.PnL = SafeRound(final-initial, 2)
			if initial > 0 {
				sum.PnLPct = SafeRound((final-initial)/initial*100, 2)
			}
			sum.AnnualReturnPct = SafeRound(res.Metrics.AnnualReturnPct, 2)
			sum.SharpeRatio = SafeRound(res.Metrics.SharpeRatio, 4)
			sum.MaxDrawdownPct = SafeRound(res.Metrics.MaxDrawdownPct, 2)
			sum.WinRate = SafeRound(res.Metrics.WinRate, 4)
			sum.TradeCount = res.Metrics.TradeCount

			ov.TotalAssets += final
			ov.TotalCash += res.Values.Cash[n-1]
			ov.TotalPnL += final - initial
			totalInitial += initial
		}

		ov.Strategies = append(ov.Strategies, sum)
	}

	ov.TotalPositionValue = ov.TotalAssets - ov.TotalCash
	if totalInitial > 0 {
		ov.TotalPnLPct = ov.TotalPnL / totalInitial * 100
	}

	ov.TotalAssets = SafeRound(ov.TotalAssets, 2)
	ov.TotalCash = SafeRound(ov.TotalCash, 2)
	ov.TotalPositionValue = SafeRound(ov.TotalPositionValue, 2)
	ov.TotalPnL = SafeRound(ov.TotalPnL, 2)
	ov.TotalPnLPct = SafeRound(ov.TotalPnLPct, 2)
	return ov, nil
}

// PositionRow is one open position tagged with its owning instance.
type PositionRow struct {
	InstanceID   string
	StrategyID   string
	StrategyName string
	DataName     string
	Size         float64
	Price        float64
	Value        float64
	Direction    string // long, short or flat, from the sign of Size
}

// Positions concatenates each instance's current-position snapshot.
func (a *Aggregator) Positions() ([]PositionRow, error) {
	instances, results, err := a.loadResults()
	if err != nil {
		return nil, err
	}

	var out []PositionRow
	for i, in := range instances {
		res := results[i]
		if res == nil {
			continue
		}
		for _, p := range res.Positions {
			dir := "flat"
			if p.Size > 0 {
				dir = "long"
			} else if p.Size < 0 {
				dir = "short"
			}
			out = append(out, PositionRow{
				InstanceID:   in.ID,
				StrategyID:   in.StrategyID,
				StrategyName: in.StrategyName,
				DataName:     p.DataName,
				Size:         p.Size,
				Price:        SafeRound(p.Price, 4),
				Value:        SafeRound(p.Value, 2),
				Direction:    dir,
			})
		}
	}
	return out, nil
}

// TradeRow is one closed trade tagged with its owning instance.
type TradeRow struct {
	InstanceID   string
	StrategyID   string
	StrategyName string
	runlog.Trade
}

// Trades concatenates every instance's closed trades, newest close date
// first (ISO dates compare correctly as strings), truncated to limit.
// A limit of 0 or less means no limit.
func (a *Aggregator) Trades(limit int) ([]TradeRow, error) {
	instances, results, err := a.loadResults()
	if err != nil {
		return nil, err
	}

	var out []TradeRow
	for i, in := range instances {
		res := results[i]
		if res == nil {
			continue
		}
		for _, tr := range res.Trades {
			out = append(out, TradeRow{
				InstanceID:   in.ID,
				StrategyID:   in.StrategyID,
				StrategyName: in.StrategyName,
				Trade:        tr,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CloseDate > out[j].CloseDate })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// StrategySeries is one instance's equity aligned onto the union date axis.
type StrategySeries struct {
	InstanceID   string
	StrategyID   string
	StrategyName string
	Equity       []float64
}

// EquityCurve is the portfolio equity view on the union of all dates.
type EquityCurve struct {
	Dates         []string
	TotalEquity   []float64
	TotalDrawdown []float64 // percent decline from running peak, >= 0
	Strategies    []StrategySeries
}

// EquityCurve aligns every instance's value series onto the sorted union of
// all dates, carrying each instance's most recent value forward across its
// missing dates (seeded with its first known value before it has data), and
// sums across instances per date.
func (a *Aggregator) EquityCurve() (EquityCurve, error) {
	instances, results, err := a.loadResults()
	if err != nil {
		return EquityCurve{}, err
	}

	dateSet := map[string]bool{}
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, d := range res.Values.Dates {
			dateSet[d] = true
		}
	}
	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	curve := EquityCurve{
		Dates:       dates,
		TotalEquity: make([]float64, len(dates)),
	}

	for i, in := range instances {
		series := StrategySeries{
			InstanceID:   in.ID,
			StrategyID:   in.StrategyID,
			StrategyName: in.StrategyName,
			Equity:       make([]float64, len(dates)),
		}

		res := results[i]
		if res != nil && res.Values.Len() > 0 {
			byDate := make(map[string]float64, res.Values.Len())
			for j, d := range res.Values.Dates {
				byDate[d] = res.Values.Equity[j]
			}

			// Ascending date order is what makes carry-forward correct.
			last := res.Values.Equity[0]
			for j, d := range dates {
				if v, ok := byDate[d]; ok {
					last = v
				}
				series.Equity[j] = last
				curve.TotalEquity[j] += last
			}
		}

		curve.Strategies = append(curve.Strategies, series)
	}

	curve.TotalDrawdown = runlog.DrawdownPctSeries(curve.TotalEquity)
	return curve, nil
}

// AllocationEntry is one instance's share of portfolio equity.
type AllocationEntry struct {
	InstanceID   string
	StrategyID   string
	StrategyName string
	Value        float64
	WeightPct    float64
}

// Allocation reports each instance's final equity as a weight of the summed
// final equity. Weights are 0 when the total is 0.
type Allocation struct {
	Total      float64
	Strategies []AllocationEntry
}

// Allocation computes portfolio weights from final equities.
func (a *Aggregator) Allocation() (Allocation, error) {
	instances, results, err := a.loadResults()
	if err != nil {
		return Allocation{}, err
	}

	var alloc Allocation
	values := make([]float64, len(instances))
	for i, res := range results {
		if res != nil && res.Values.Len() > 0 {
			values[i] = res.Values.Equity[res.Values.Len()-1]
			alloc.Total += values[i]
		}
	}

	for i, in := range instances {
		weight := 0.0
		if alloc.Total > 0 {
			weight = values[i] / alloc.Total * 100
		}
		alloc.Strategies = append(alloc.Strategies, AllocationEntry{
			InstanceID:   in.ID,
			StrategyID:   in.StrategyID,
			StrategyName: in.StrategyName,
			Value:        SafeRound(values[i], 2),
			WeightPct:    SafeRound(weight, 2),
		})
	}

	alloc.Total = SafeRound(alloc.Total, 2)
	return alloc, nil
}
