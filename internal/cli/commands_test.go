package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/danpasecinic/rpod/internal/config"
	"github.com/danpasecinic/rpod/internal/state"
	"github.com/danpasecinic/rpod/internal/types"
)

// setupEnv points the CLI at a temp config dir and a fake GraphQL API.
// Handlers are keyed by a substring of the incoming query.
func setupEnv(t *testing.T, handlers map[string]func(vars map[string]interface{}) string) *state.Store {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Bad request body: %v", err)
		}
		for key, handler := range handlers {
			if strings.Contains(req.Query, key) {
				_, _ = w.Write([]byte(handler(req.Variables)))
				return
			}
		}
		t.Fatalf("Unhandled query: %s", req.Query)
	}))
	t.Cleanup(server.Close)

	root := t.TempDir()
	yaml := fmt.Sprintf("api_endpoint: %s\nssh_config_path: %s\n", server.URL, filepath.Join(root, "ssh_config"))
	if err := os.WriteFile(filepath.Join(root, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.APIKeyEnv, "test-key")

	original := configDir
	configDir = root
	t.Cleanup(func() { configDir = original })

	return state.New(root)
}

func runningPod(id, name string) string {
	return fmt.Sprintf(`{"data": {"pod": {
		"id": %q, "name": %q, "desiredStatus": "RUNNING",
		"runtime": {"ports": [{"ip": "203.0.113.5", "isIpPublic": true, "privatePort": 22, "publicPort": 41000}]}
	}}}`, id, name)
}

func TestStopCommand_SchedulesWithIn(t *testing.T) {
	store := setupEnv(t, map[string]func(map[string]interface{}) string{
		"query pod": func(map[string]interface{}) string { return runningPod("pod-1", "train-1") },
	})
	err := store.Mutate(func(doc *state.Document) error {
		return doc.AddAlias("train-1", "pod-1", false)
	})
	if err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{Use: "stop", Args: cobra.ExactArgs(1), RunE: stopCmd.RunE}
	cmd.Flags().StringVar(&stopAt, "at", "", "")
	cmd.Flags().StringVar(&stopIn, "in", "", "")
	cmd.Flags().BoolVar(&stopDryRun, "dry-run", false, "")
	cmd.SilenceUsage = true
	cmd.SetArgs([]string{"train-1", "--in", "2h"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Stop command failed: %v", err)
	}

	tasks, err := store.LoadTasks()
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 scheduled task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.Action != types.ActionStop || task.Alias != "train-1" || task.Status != types.TaskPending {
		t.Errorf("Unexpected task: %+v", task)
	}
	lead := time.Until(task.When())
	if lead < 110*time.Minute || lead > 130*time.Minute {
		t.Errorf("Task not ~2h out: %v", lead)
	}
}

func TestStopCommand_RejectsAtAndIn(t *testing.T) {
	setupEnv(t, nil)

	cmd := &cobra.Command{Use: "stop", Args: cobra.ExactArgs(1), RunE: stopCmd.RunE}
	cmd.Flags().StringVar(&stopAt, "at", "", "")
	cmd.Flags().StringVar(&stopIn, "in", "", "")
	cmd.Flags().BoolVar(&stopDryRun, "dry-run", false, "")
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"train-1", "--at", "22:00", "--in", "2h"})

	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for --at with --in")
	}
}

func TestSchedulerTickCommand_ExecutesDueTask(t *testing.T) {
	stopCalls := 0
	store := setupEnv(t, map[string]func(map[string]interface{}) string{
		"podStop": func(vars map[string]interface{}) string {
			stopCalls++
			return `{"data": {"podStop": {"id": "pod-1", "desiredStatus": "EXITED"}}}`
		},
		"query pod": func(map[string]interface{}) string { return runningPod("pod-1", "train-1") },
	})

	err := store.Mutate(func(doc *state.Document) error {
		return doc.AddAlias("train-1", "pod-1", false)
	})
	if err != nil {
		t.Fatal(err)
	}
	err = store.MutateTasks(func(tasks []types.ScheduledTask) ([]types.ScheduledTask, error) {
		return append(tasks, types.ScheduledTask{
			ID:        "task-1",
			Action:    types.ActionStop,
			Alias:     "train-1",
			WhenEpoch: time.Now().Add(-time.Minute).Unix(),
			Status:    types.TaskPending,
			CreatedAt: time.Now().UTC(),
		}), nil
	})
	if err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{Use: "scheduler-tick", RunE: schedulerTickCmd.RunE}
	cmd.SilenceUsage = true
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Tick command failed: %v", err)
	}
	if stopCalls != 1 {
		t.Errorf("Expected 1 stop call, got %d", stopCalls)
	}

	tasks, _ := store.LoadTasks()
	if len(tasks) != 1 || tasks[0].Status != types.TaskCompleted {
		t.Errorf("Task not completed: %+v", tasks)
	}
}

func TestTemplateCommands_CreateAndDelete(t *testing.T) {
	store := setupEnv(t, nil)

	createCmd := &cobra.Command{Use: "create", Args: cobra.ExactArgs(4), RunE: templateCreateCmd.RunE}
	createCmd.Flags().StringVar(&templateContainerDisk, "container-disk", "", "")
	createCmd.Flags().StringVarP(&templateImage, "image", "i", "", "")
	createCmd.Flags().StringArrayVarP(&templateConfig, "config", "c", []string{}, "")
	createCmd.Flags().BoolVarP(&templateForce, "force", "f", false, "")
	createCmd.SilenceUsage = true
	createCmd.SetArgs([]string{"train", "train-{i}", "2xH100", "500GB", "--config", "path=/workspace"})

	if err := createCmd.Execute(); err != nil {
		t.Fatalf("Template create failed: %v", err)
	}

	doc, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	tmpl, ok := doc.Templates["train"]
	if !ok {
		t.Fatalf("Template not persisted: %+v", doc.Templates)
	}
	if tmpl.GPUSpec != "2xH100" || tmpl.Config.Path() != "/workspace" {
		t.Errorf("Unexpected template: %+v", tmpl)
	}

	deleteCmd := &cobra.Command{Use: "delete", Args: cobra.ExactArgs(1), RunE: templateDeleteCmd.RunE}
	deleteCmd.SilenceUsage = true
	deleteCmd.SetArgs([]string{"train"})

	if err := deleteCmd.Execute(); err != nil {
		t.Fatalf("Template delete failed: %v", err)
	}
	doc, _ = store.Load()
	if _, ok := doc.Templates["train"]; ok {
		t.Error("Template not deleted")
	}
}

func TestTemplateCommand_InvalidPattern(t *testing.T) {
	setupEnv(t, nil)

	cmd := &cobra.Command{Use: "create", Args: cobra.ExactArgs(4), RunE: templateCreateCmd.RunE}
	cmd.Flags().StringVar(&templateContainerDisk, "container-disk", "", "")
	cmd.Flags().StringVarP(&templateImage, "image", "i", "", "")
	cmd.Flags().StringArrayVarP(&templateConfig, "config", "c", []string{}, "")
	cmd.Flags().BoolVarP(&templateForce, "force", "f", false, "")
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"train", "train-x", "2xH100", "500GB"})

	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for pattern without {i}")
	}
}

func TestConfigSetCommand(t *testing.T) {
	store := setupEnv(t, nil)
	err := store.Mutate(func(doc *state.Document) error {
		return doc.AddAlias("train-1", "pod-1", false)
	})
	if err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{Use: "set", Args: cobra.MinimumNArgs(2), RunE: configSetCmd.RunE}
	cmd.SilenceUsage = true
	cmd.SetArgs([]string{"train-1", "path=/data", "team=ml"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Config set failed: %v", err)
	}

	doc, _ := store.Load()
	cfg, err := doc.Config("train-1")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path() != "/data" || cfg["team"] != "ml" {
		t.Errorf("Config not applied: %v", cfg)
	}
}

func TestUntrackCommand(t *testing.T) {
	store := setupEnv(t, nil)
	err := store.Mutate(func(doc *state.Document) error {
		return doc.AddAlias("train-1", "pod-1", false)
	})
	if err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{Use: "untrack", Args: cobra.ExactArgs(1), RunE: untrackCmd.RunE}
	cmd.SilenceUsage = true
	cmd.SetArgs([]string{"train-1"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Untrack failed: %v", err)
	}
	doc, _ := store.Load()
	if len(doc.Pods) != 0 {
		t.Errorf("Alias not removed: %+v", doc.Pods)
	}
}

func TestCreateCommand_RequiresSpecOrTemplate(t *testing.T) {
	setupEnv(t, nil)

	cmd := &cobra.Command{Use: "create", Args: cobra.MaximumNArgs(1), RunE: createCmd.RunE}
	cmd.Flags().StringVarP(&createAlias, "alias", "a", "", "")
	cmd.Flags().StringVarP(&createGPU, "gpu", "g", "", "")
	cmd.Flags().StringVarP(&createStorage, "storage", "s", "", "")
	cmd.Flags().StringVar(&createContainerDisk, "container-disk", "", "")
	cmd.Flags().StringVarP(&createImage, "image", "i", "", "")
	cmd.Flags().StringArrayVarP(&createConfig, "config", "c", []string{}, "")
	cmd.Flags().BoolVarP(&createForce, "force", "f", false, "")
	cmd.Flags().BoolVar(&createDryRun, "dry-run", false, "")
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"--alias", "x"})

	if err := cmd.Execute(); err == nil {
		t.Error("Expected error without --gpu and --storage")
	}
}
