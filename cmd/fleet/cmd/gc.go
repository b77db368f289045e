package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fleet/runlog"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Compress old run directories to .tar.xz archives",
	Args:  cobra.NoArgs,
	RunE:  runGC,
}

var gcKeep int

func init() {
	rootCmd.AddCommand(gcCmd)

	gcCmd.Flags().IntVarP(&gcKeep, "keep", "k", 0, "run directories to keep per strategy (default from config)")
}

func runGC(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	keep := gcKeep
	if keep <= 0 {
		keep = a.cfg.Retention.KeepRuns
	}

	total := 0
	for _, info := range a.catalog.List() {
		archived, err := runlog.CompressRuns(a.catalog.LogsRoot(info.ID), keep)
		if err != nil {
			return fmt.Errorf("strategy %s: %w", info.ID, err)
		}
		for _, name := range archived {
			fmt.Printf("%s: archived %s\n", info.ID, name)
		}
		total += len(archived)
	}

	fmt.Printf("archived %d run directories\n", total)
	return nil
}
