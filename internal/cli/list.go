package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/danpasecinic/rpod/internal/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked pods",
	Long:  `List every tracked alias with the provider's current view of its pod.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := newManager()
		if err != nil {
			return err
		}

		pods, err := mgr.List()
		if err != nil {
			return err
		}
		if len(pods) == 0 {
			fmt.Println("No pods tracked. Use 'rpod create' or 'rpod track' to add one.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintf(w, "ALIAS\tSTATUS\tGPU\tSSH\tCOST\tUPTIME\n")
		for _, pod := range pods {
			_, _ = fmt.Fprintf(
				w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				pod.Alias,
				strings.ToUpper(string(pod.Status)),
				formatGPU(pod),
				formatSSH(pod),
				formatCost(pod),
				formatUptime(pod),
			)
		}
		_ = w.Flush()
		return nil
	},
}

func formatGPU(pod types.Pod) string {
	if pod.GPUModel == "" {
		return "-"
	}
	if pod.GPUCount > 1 {
		return fmt.Sprintf("%dx%s", pod.GPUCount, pod.GPUModel)
	}
	return pod.GPUModel
}

func formatSSH(pod types.Pod) string {
	if !pod.Reachable() {
		return "-"
	}
	return fmt.Sprintf("%s:%d", pod.IPAddress, pod.SSHPort)
}

func formatCost(pod types.Pod) string {
	if pod.CostPerHour == 0 {
		return "-"
	}
	return fmt.Sprintf("$%.3f/h", pod.CostPerHour)
}

func formatUptime(pod types.Pod) string {
	if pod.UptimeSeconds == 0 {
		return "-"
	}
	d := time.Duration(pod.UptimeSeconds) * time.Second
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd%dh", int(d.Hours())/24, int(d.Hours())%24)
}

func init() {
	rootCmd.AddCommand(listCmd)
}
