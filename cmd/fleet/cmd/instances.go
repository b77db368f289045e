package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fleet/instance"
)

var addCmd = &cobra.Command{
	Use:   "add <strategy-id>",
	Short: "Register a new instance for a strategy",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

var removeCmd = &cobra.Command{
	Use:   "remove <instance-id>",
	Short: "Remove an instance, force-stopping it if running",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all instances with refreshed liveness",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var addParams []string

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(listCmd)

	addCmd.Flags().StringArrayVarP(&addParams, "param", "p", nil, "strategy parameter as key=value (repeatable)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	params := map[string]string{}
	for _, kv := range addParams {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --param %q, want key=value", kv)
		}
		params[k] = v
	}

	in, err := a.mgr.Add(args[0], params)
	if err != nil {
		return err
	}

	fmt.Printf("added %s (%s)\n", in.ID, in.StrategyName)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.mgr.Remove(args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("instance %q not found", args[0])
	}

	fmt.Printf("removed %s\n", args[0])
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	instances, err := a.mgr.List()
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		fmt.Println("no instances")
		return nil
	}

	fmt.Printf("%-28s %-16s %-8s %-8s %s\n", "ID", "STRATEGY", "STATUS", "PID", "STARTED")
	for _, in := range instances {
		pid := "-"
		if in.PID != nil {
			pid = fmt.Sprintf("%d", *in.PID)
		}
		started := "-"
		if in.StartedAt != nil {
			started = in.StartedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-28s %-16s %-8s %-8s %s\n", in.ID, in.StrategyID, in.Status, pid, started)
		if in.Status == instance.StatusError && in.Error != nil {
			fmt.Printf("    error: %s\n", firstLine(*in.Error))
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
