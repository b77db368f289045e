package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fleet/manager"
)

var startCmd = &cobra.Command{
	Use:   "start <instance-id>",
	Short: "Start an instance's strategy process",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop <instance-id>",
	Short: "Stop an instance, killing after the graceful timeout",
	Args:  cobra.ExactArgs(1),
	RunE:  runStop,
}

var startAllCmd = &cobra.Command{
	Use:   "start-all",
	Short: "Start every instance that is not already running",
	Args:  cobra.NoArgs,
	RunE:  runStartAll,
}

var stopAllCmd = &cobra.Command{
	Use:   "stop-all",
	Short: "Stop every running instance",
	Args:  cobra.NoArgs,
	RunE:  runStopAll,
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(startAllCmd)
	rootCmd.AddCommand(stopAllCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	in, err := a.mgr.Start(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("started %s (%s) pid %d\n", in.ID, in.StrategyID, *in.PID)
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	in, err := a.mgr.Stop(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("stopped %s (%s)\n", in.ID, in.StrategyID)
	return nil
}

func runStartAll(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	printBatch(a.mgr.StartAll())
	return nil
}

func runStopAll(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	printBatch(a.mgr.StopAll())
	return nil
}

func printBatch(res manager.BatchResult) {
	for _, r := range res.Results {
		line := fmt.Sprintf("%-28s %-16s %s", r.ID, r.Strategy, r.Outcome)
		if r.Err != "" {
			line += ": " + r.Err
		}
		fmt.Println(line)
	}
	fmt.Printf("%d succeeded, %d skipped, %d failed\n", res.Succeeded, res.Skipped, res.Failed)
}
