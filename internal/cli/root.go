package cli

import (
	"github.com/spf13/cobra"

	"github.com/danpasecinic/rpod/internal/config"
	"github.com/danpasecinic/rpod/internal/manager"
	"github.com/danpasecinic/rpod/internal/runpod"
	"github.com/danpasecinic/rpod/internal/scheduler"
	"github.com/danpasecinic/rpod/internal/sshconfig"
	"github.com/danpasecinic/rpod/internal/state"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "rpod",
	Short: "rpod - manage RunPod GPU pods by alias",
	Long: `rpod manages remote GPU pods through human-memorable aliases instead of
provider IDs. It keeps local state under a config directory, maintains
managed blocks in your SSH config, and can schedule pods to stop later.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default is $HOME/.config/rpod)")
}

func stateRoot() (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	return config.DefaultRoot()
}

// newManager wires the store, provider client, and SSH reconciler for
// one command invocation. Nothing is cached across invocations; every
// command loads fresh from disk.
func newManager() (*manager.Manager, *state.Store, error) {
	root, err := stateRoot()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, err
	}
	apiKey, err := config.APIKey(root)
	if err != nil {
		return nil, nil, err
	}

	store := state.New(root)
	provider := runpod.NewClient(cfg.APIEndpoint, apiKey)
	ssh := sshconfig.NewManager(cfg.SSHConfigPath)
	return manager.New(store, provider, ssh, cfg), store, nil
}

func newEngine() (*scheduler.Engine, *manager.Manager, error) {
	mgr, store, err := newManager()
	if err != nil {
		return nil, nil, err
	}
	return scheduler.New(store, mgr), mgr, nil
}

// autoClean runs a best-effort cleanup pass after state-changing
// commands. Failures are swallowed so they never mask the outcome of
// the command the user actually ran.
func autoClean(mgr *manager.Manager, store *state.Store) {
	if _, err := mgr.Clean(); err != nil {
		return
	}
	engine := scheduler.New(store, mgr)
	_, _ = engine.Clean()
}
