package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install <bundle.zip>",
	Short: "Install a zipped strategy bundle into the strategies root",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.catalog.InstallBundle(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("installed strategy %s\n", id)
	return nil
}
