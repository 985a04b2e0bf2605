package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danpasecinic/rpod/internal/scheduler"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove stale local state",
	Long: `Remove aliases whose pods no longer exist at the provider, prune their
SSH config blocks, and purge completed and cancelled scheduled tasks.
Failed tasks are kept so their errors stay visible.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, store, err := newManager()
		if err != nil {
			return err
		}

		report, err := mgr.Clean()
		if err != nil {
			return err
		}
		if len(report.RemovedAliases) > 0 {
			fmt.Printf("Removed %d invalid alias(es): %s\n",
				len(report.RemovedAliases), strings.Join(report.RemovedAliases, ", "))
		} else {
			fmt.Println("No invalid aliases found.")
		}
		if report.RemovedBlocks > 0 {
			fmt.Printf("Pruned %d orphaned SSH config block(s).\n", report.RemovedBlocks)
		}

		engine := scheduler.New(store, mgr)
		removed, err := engine.Clean()
		if err != nil {
			return err
		}
		if removed > 0 {
			fmt.Printf("Removed %d finished scheduled task(s).\n", removed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
