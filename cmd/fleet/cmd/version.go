package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the current fleet version.
const Version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fleet version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("fleet", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
