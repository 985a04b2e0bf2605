package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danpasecinic/rpod/internal/types"
)

var showCmd = &cobra.Command{
	Use:   "show <alias>",
	Short: "Show details for one pod",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		alias := args[0]
		mgr, store, err := newManager()
		if err != nil {
			return err
		}

		pod, err := mgr.Get(alias)
		if err != nil {
			return err
		}

		fmt.Printf("Pod: %s\n", alias)
		fmt.Printf("  ID:      %s\n", pod.ID)
		fmt.Printf("  Status:  %s\n", strings.ToUpper(string(pod.Status)))
		if pod.GPUModel != "" {
			fmt.Printf("  GPU:     %s\n", formatGPU(*pod))
		}
		if pod.VolumeGB > 0 {
			fmt.Printf("  Storage: %dGB\n", pod.VolumeGB)
		}
		if pod.ContainerDiskGB > 0 {
			fmt.Printf("  Disk:    %dGB\n", pod.ContainerDiskGB)
		}
		if pod.CostPerHour > 0 {
			fmt.Printf("  Cost:    $%.3f/hour\n", pod.CostPerHour)
		}
		if pod.Reachable() {
			fmt.Printf("  SSH:     %s:%d\n", pod.IPAddress, pod.SSHPort)
		}
		if pod.Image != "" {
			fmt.Printf("  Image:   %s\n", pod.Image)
		}

		cfg, err := mgr.ConfigGet(alias)
		if err == nil && len(cfg) > 0 {
			fmt.Println("Config:")
			keys := make([]string, 0, len(cfg))
			for key := range cfg {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Printf("  %s: %s\n", key, cfg[key])
			}
		}

		tasks, err := store.LoadTasks()
		if err != nil {
			return err
		}
		for _, task := range tasks {
			if task.Alias == alias && task.Status == types.TaskPending {
				fmt.Printf("Scheduled: %s at %s (id=%s)\n",
					task.Action, task.When().Format("2006-01-02 15:04"), task.ID)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
