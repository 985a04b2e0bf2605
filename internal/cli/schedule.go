package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled tasks",
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, err := newEngine()
		if err != nil {
			return err
		}

		tasks, err := engine.List()
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Println("No scheduled tasks.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintf(w, "ID\tACTION\tALIAS\tWHEN\tSTATUS\tERROR\n")
		for _, task := range tasks {
			errStr := task.LastError
			if errStr == "" {
				errStr = "-"
			}
			_, _ = fmt.Fprintf(
				w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				task.ID,
				task.Action,
				task.Alias,
				task.When().Format("2006-01-02 15:04"),
				task.Status,
				errStr,
			)
		}
		_ = w.Flush()
		return nil
	},
}

var scheduleCancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Cancel a pending scheduled task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, err := newEngine()
		if err != nil {
			return err
		}

		task, cancelled, err := engine.Cancel(args[0])
		if err != nil {
			return err
		}
		if !cancelled {
			fmt.Printf("Task %s is already %s; nothing to do.\n", task.ID, task.Status)
			return nil
		}
		fmt.Printf("Cancelled task %s.\n", task.ID)
		return nil
	},
}

// schedulerTickCmd is the entrypoint the OS-level periodic trigger
// invokes. It stays quiet unless tasks actually ran, since it fires
// every minute.
var schedulerTickCmd = &cobra.Command{
	Use:    "scheduler-tick",
	Short:  "Execute due scheduled tasks",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, err := newEngine()
		if err != nil {
			return err
		}

		results, err := engine.Tick(time.Now())
		for _, result := range results {
			if result.Err != nil {
				fmt.Printf("task %s (%s %s): failed: %v\n",
					result.Task.ID, result.Task.Action, result.Task.Alias, result.Err)
			} else {
				fmt.Printf("task %s (%s %s): completed\n",
					result.Task.ID, result.Task.Action, result.Task.Alias)
			}
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleCancelCmd)
	rootCmd.AddCommand(schedulerTickCmd)
}
