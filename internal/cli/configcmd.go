package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/danpasecinic/rpod/internal/spec"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage per-pod configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get <alias>",
	Short: "Show a pod's config values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := newManager()
		if err != nil {
			return err
		}

		cfg, err := mgr.ConfigGet(args[0])
		if err != nil {
			return err
		}
		if len(cfg) == 0 {
			fmt.Printf("No config set for '%s'.\n", args[0])
			return nil
		}

		keys := make([]string, 0, len(cfg))
		for key := range cfg {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Printf("%s: %s\n", key, cfg[key])
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <alias> <key=value>...",
	Short: "Set config values for a pod",
	Long: `Set per-pod config values. The 'path' key sets the default working
directory collaborating tools open; other keys are stored as-is. An
empty value ("key=") clears the key.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := spec.ParseConfigFlags(args[1:])
		if err != nil {
			return err
		}

		mgr, _, err := newManager()
		if err != nil {
			return err
		}
		if err := mgr.ConfigSet(args[0], values); err != nil {
			return err
		}
		fmt.Printf("Updated config for '%s'.\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}
