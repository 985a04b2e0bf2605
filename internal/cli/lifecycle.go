package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danpasecinic/rpod/internal/scheduler"
	"github.com/danpasecinic/rpod/internal/types"
)

var (
	stopAt     string
	stopIn     string
	stopDryRun bool

	trackAlias string
	trackForce bool
)

var startCmd = &cobra.Command{
	Use:   "start <alias>",
	Short: "Start a stopped pod",
	Long:  `Resume a pod, wait for it to come back online, and refresh its SSH config entry.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, store, err := newManager()
		if err != nil {
			return err
		}

		fmt.Printf("Starting pod '%s'...\n", args[0])
		pod, err := mgr.Start(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Println("Pod is now RUNNING.")
		if pod.Reachable() {
			fmt.Printf("SSH ready: ssh %s (%s:%d)\n", pod.Alias, pod.IPAddress, pod.SSHPort)
		}
		autoClean(mgr, store)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <alias>",
	Short: "Stop a pod, now or later",
	Long: `Stop a pod immediately, or schedule the stop for later with --at or --in.
Scheduled stops are executed by the periodic 'scheduler-tick' command.

Time formats for --at: "22:00", "2025-01-03 09:30", "tomorrow 09:30".
Duration format for --in: "3h", "45m", "1d2h30m".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		alias := args[0]
		if stopAt != "" && stopIn != "" {
			return fmt.Errorf("--at and --in are mutually exclusive")
		}

		mgr, store, err := newManager()
		if err != nil {
			return err
		}
		// Validate the alias before touching the schedule
		if _, err := mgr.Get(alias); err != nil {
			return err
		}

		if stopAt != "" || stopIn != "" {
			now := time.Now()
			var when time.Time
			if stopAt != "" {
				when, err = scheduler.ParseTime(stopAt, now)
			} else {
				var d time.Duration
				d, err = scheduler.ParseDuration(stopIn)
				when = now.Add(d)
			}
			if err != nil {
				return err
			}

			if stopDryRun {
				fmt.Printf("DRY RUN: would schedule stop of '%s' at %s\n", alias, when.Format("2006-01-02 15:04"))
				return nil
			}

			engine := scheduler.New(store, mgr)
			task, err := engine.Schedule(alias, types.ActionStop, when)
			if err != nil {
				return err
			}
			fmt.Printf("Scheduled stop of '%s' at %s (id=%s)\n", alias, when.Format("2006-01-02 15:04"), task.ID)
			return nil
		}

		if stopDryRun {
			fmt.Printf("DRY RUN: would stop '%s' now\n", alias)
			return nil
		}

		fmt.Printf("Stopping pod '%s'...\n", alias)
		if err := mgr.StopPod(alias); err != nil {
			return err
		}
		fmt.Println("Pod has been stopped.")
		autoClean(mgr, store)
		return nil
	},
}

var destroyCmd = &cobra.Command{
	Use:   "destroy <alias>",
	Short: "Terminate a pod and forget its alias",
	Long:  `Terminate the remote pod, remove its SSH config entry, and delete the alias. This cannot be undone.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, store, err := newManager()
		if err != nil {
			return err
		}

		podID, err := mgr.Destroy(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Terminated pod %s and removed alias '%s'.\n", podID, args[0])
		autoClean(mgr, store)
		return nil
	},
}

var trackCmd = &cobra.Command{
	Use:   "track <pod-id>",
	Short: "Track an existing pod under an alias",
	Long:  `Register an already-running provider pod under an alias. Without --alias the pod's provider-side name is used.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := newManager()
		if err != nil {
			return err
		}

		pod, err := mgr.Track(trackAlias, args[0], trackForce)
		if err != nil {
			return err
		}
		fmt.Printf("Now tracking '%s' -> %s\n", pod.Alias, pod.ID)
		if !pod.Reachable() {
			fmt.Println("Pod is not running; SSH config not updated.")
		}
		return nil
	},
}

var untrackCmd = &cobra.Command{
	Use:   "untrack <alias>",
	Short: "Stop tracking a pod",
	Long:  `Remove the alias mapping and its SSH config entry. The remote pod keeps running.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := newManager()
		if err != nil {
			return err
		}

		podID, err := mgr.Untrack(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Stopped tracking '%s' (was %s)\n", args[0], podID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(untrackCmd)

	stopCmd.Flags().StringVar(&stopAt, "at", "", "schedule the stop for a time, e.g. \"22:00\"")
	stopCmd.Flags().StringVar(&stopIn, "in", "", "schedule the stop after a duration, e.g. \"3h\"")
	stopCmd.Flags().BoolVar(&stopDryRun, "dry-run", false, "show what would happen without doing it")

	trackCmd.Flags().StringVarP(&trackAlias, "alias", "a", "", "alias to use (default: the pod's name)")
	trackCmd.Flags().BoolVarP(&trackForce, "force", "f", false, "overwrite an existing alias")
}
