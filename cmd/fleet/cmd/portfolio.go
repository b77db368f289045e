package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fleet/runlog"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Portfolio analytics across all instances",
	Long: `Aggregate every instance's latest run logs into portfolio views.

Subcommands:
  overview   - headline totals plus a per-strategy summary
  positions  - every open position with strategy attribution
  trades     - closed trades across all strategies, newest first
  equity     - union-date equity curve with carry-forward alignment
  allocation - per-strategy weight of total equity`,
}

var tradesLimit int

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Portfolio totals and per-strategy summary",
	Args:  cobra.NoArgs,
	RunE:  runOverview,
}

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Open positions across all strategies",
	Args:  cobra.NoArgs,
	RunE:  runPositions,
}

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "Closed trades across all strategies, newest first",
	Args:  cobra.NoArgs,
	RunE:  runTrades,
}

var equityCmd = &cobra.Command{
	Use:   "equity",
	Short: "Portfolio equity curve on the union of all dates",
	Args:  cobra.NoArgs,
	RunE:  runEquity,
}

var allocationCmd = &cobra.Command{
	Use:   "allocation",
	Short: "Per-strategy allocation weights",
	Args:  cobra.NoArgs,
	RunE:  runAllocation,
}

func init() {
	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.AddCommand(overviewCmd)
	portfolioCmd.AddCommand(positionsCmd)
	portfolioCmd.AddCommand(tradesCmd)
	portfolioCmd.AddCommand(equityCmd)
	portfolioCmd.AddCommand(allocationCmd)

	tradesCmd.Flags().IntVarP(&tradesLimit, "limit", "n", 50, "maximum number of trades to show (0 = all)")
}

func runOverview(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ov, err := a.aggregator().Overview()
	if err != nil {
		return err
	}

	fmt.Printf("total assets:    %.2f\n", ov.TotalAssets)
	fmt.Printf("total cash:      %.2f\n", ov.TotalCash)
	fmt.Printf("position value:  %.2f\n", ov.TotalPositionValue)
	fmt.Printf("total p/l:       %.2f (%.2f%%)\n", ov.TotalPnL, ov.TotalPnLPct)
	fmt.Printf("strategies:      %d (%d running)\n\n", ov.StrategyCount, ov.RunningCount)

	fmt.Printf("%-28s %-16s %-8s %12s %10s %8s %8s\n",
		"ID", "STRATEGY", "STATUS", "EQUITY", "P/L%", "MAXDD%", "TRADES")
	for _, s := range ov.Strategies {
		fmt.Printf("%-28s %-16s %-8s %12.2f %10.2f %8.2f %8d\n",
			s.InstanceID, s.StrategyID, s.Status, s.Equity, s.PnLPct, s.MaxDrawdownPct, s.TradeCount)
	}
	return nil
}

func runPositions(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := a.aggregator().Positions()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no open positions")
		return nil
	}

	fmt.Printf("%-16s %-12s %-6s %12s %12s %12s\n",
		"STRATEGY", "DATA", "DIR", "SIZE", "PRICE", "VALUE")
	for _, r := range rows {
		fmt.Printf("%-16s %-12s %-6s %12.4f %12.4f %12.2f\n",
			r.StrategyID, r.DataName, r.Direction, r.Size, r.Price, r.Value)
	}
	return nil
}

func runTrades(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := a.aggregator().Trades(tradesLimit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no closed trades")
		return nil
	}

	fmt.Printf("%-16s %-12s %-6s %-12s %-12s %10s %10s\n",
		"STRATEGY", "DATA", "DIR", "OPENED", "CLOSED", "PNL", "PNL-NET")
	for _, r := range rows {
		fmt.Printf("%-16s %-12s %-6s %-12s %-12s %10.2f %10.2f\n",
			r.StrategyID, r.DataName, r.Direction, r.OpenDate, r.CloseDate, r.PnL, r.PnLNet)
	}
	return nil
}

func runEquity(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	curve, err := a.aggregator().EquityCurve()
	if err != nil {
		return err
	}
	if len(curve.Dates) == 0 {
		fmt.Println("no equity data")
		return nil
	}

	fmt.Printf("%-12s %14s %10s\n", "DATE", "EQUITY", "DD%")
	for i, d := range curve.Dates {
		fmt.Printf("%-12s %14.2f %10.2f\n", d, curve.TotalEquity[i], curve.TotalDrawdown[i])
	}

	points := runlog.DrawdownCurve(curve.Dates, curve.TotalEquity)
	if worst, ok := runlog.MaxDrawdownPoint(points); ok {
		fmt.Printf("\nmax drawdown: %.2f%% (peak %.2f, trough %.2f on %s)\n",
			worst.DrawdownPct, worst.RunningPeak, worst.Trough, worst.Date)
	}
	return nil
}

func runAllocation(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	alloc, err := a.aggregator().Allocation()
	if err != nil {
		return err
	}

	fmt.Printf("total equity: %.2f\n\n", alloc.Total)
	fmt.Printf("%-28s %-16s %14s %8s\n", "ID", "STRATEGY", "VALUE", "WEIGHT%")
	for _, s := range alloc.Strategies {
		fmt.Printf("%-28s %-16s %14.2f %8.2f\n", s.InstanceID, s.StrategyID, s.Value, s.WeightPct)
	}
	return nil
}
