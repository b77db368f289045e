package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fleet/journal"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived runs from the journal",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

var (
	runsInstance string
	runsLimit    int
)

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().StringVarP(&runsInstance, "instance", "i", "", "only runs of this instance id")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs to show (0 = all)")
}

func runRuns(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.jrnl == nil {
		return fmt.Errorf("journal disabled: set journal.db_path in the config")
	}

	var recs []journal.RunRecord
	if runsInstance != "" {
		recs, err = a.jrnl.ListRunsByInstance(runsInstance)
	} else {
		recs, err = a.jrnl.ListRuns(runsLimit)
	}
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}

	fmt.Printf("%-28s %-16s %-8s %-20s %12s %8s %8s\n",
		"INSTANCE", "STRATEGY", "STATUS", "STOPPED", "EQUITY", "RET%", "TRADES")
	for _, r := range recs {
		fmt.Printf("%-28s %-16s %-8s %-20s %12.2f %8.2f %8d\n",
			r.InstanceID, r.StrategyID, r.Status,
			r.StoppedAt.Format("2006-01-02 15:04:05"),
			r.FinalEquity, r.ReturnPct, r.Trades)
	}
	return nil
}
