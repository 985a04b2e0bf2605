package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danpasecinic/rpod/internal/types"
)

func TestLoadMissingFile(t *testing.T) {
	store := New(t.TempDir())

	doc, err := store.Load()
	if err != nil {
		t.Fatalf("Failed to load empty store: %v", err)
	}
	if len(doc.Pods) != 0 || len(doc.Templates) != 0 {
		t.Errorf("Expected empty document, got %d pods, %d templates", len(doc.Pods), len(doc.Templates))
	}
}

func TestMutatePersists(t *testing.T) {
	root := t.TempDir()
	store := New(root)

	err := store.Mutate(func(doc *Document) error {
		return doc.AddAlias("train-1", "pod-abc123", false)
	})
	if err != nil {
		t.Fatalf("Failed to mutate: %v", err)
	}

	// Fresh store instance, no shared memory
	doc, err := New(root).Load()
	if err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	podID, err := doc.PodID("train-1")
	if err != nil {
		t.Fatalf("Failed to resolve alias: %v", err)
	}
	if podID != "pod-abc123" {
		t.Errorf("Expected pod-abc123, got %s", podID)
	}
}

func TestAliasUniqueness(t *testing.T) {
	doc := newDocument()

	if err := doc.AddAlias("train-1", "pod-a", false); err != nil {
		t.Fatalf("Failed to add alias: %v", err)
	}
	if err := doc.AddAlias("train-1", "pod-b", false); err != ErrAliasExists {
		t.Errorf("Expected ErrAliasExists, got %v", err)
	}

	// Force replaces the record
	if err := doc.AddAlias("train-1", "pod-b", true); err != nil {
		t.Fatalf("Failed to force-add alias: %v", err)
	}
	podID, _ := doc.PodID("train-1")
	if podID != "pod-b" {
		t.Errorf("Expected pod-b after force, got %s", podID)
	}
}

func TestRemoveAlias(t *testing.T) {
	doc := newDocument()
	_ = doc.AddAlias("train-1", "pod-a", false)

	podID, err := doc.RemoveAlias("train-1")
	if err != nil {
		t.Fatalf("Failed to remove alias: %v", err)
	}
	if podID != "pod-a" {
		t.Errorf("Expected removed pod ID pod-a, got %s", podID)
	}

	if _, err := doc.RemoveAlias("train-1"); err != ErrAliasNotFound {
		t.Errorf("Expected ErrAliasNotFound, got %v", err)
	}
}

func TestSetConfigValue(t *testing.T) {
	doc := newDocument()
	_ = doc.AddAlias("train-1", "pod-a", false)

	if err := doc.SetConfigValue("train-1", types.ConfigKeyPath, "/workspace/proj"); err != nil {
		t.Fatalf("Failed to set config: %v", err)
	}
	// Unrecognized keys pass through opaquely
	if err := doc.SetConfigValue("train-1", "custom", "value"); err != nil {
		t.Fatalf("Failed to set opaque key: %v", err)
	}

	cfg, err := doc.Config("train-1")
	if err != nil {
		t.Fatalf("Failed to get config: %v", err)
	}
	if cfg.Path() != "/workspace/proj" {
		t.Errorf("Expected path /workspace/proj, got %s", cfg.Path())
	}
	if cfg["custom"] != "value" {
		t.Errorf("Expected opaque key to round-trip, got %q", cfg["custom"])
	}

	// Empty value clears the key
	if err := doc.SetConfigValue("train-1", types.ConfigKeyPath, ""); err != nil {
		t.Fatalf("Failed to clear config: %v", err)
	}
	cfg, _ = doc.Config("train-1")
	if cfg.Path() != "" {
		t.Errorf("Expected cleared path, got %s", cfg.Path())
	}

	if err := doc.SetConfigValue("missing", "path", "/x"); err != ErrAliasNotFound {
		t.Errorf("Expected ErrAliasNotFound, got %v", err)
	}
}

func TestTemplates(t *testing.T) {
	doc := newDocument()
	tmpl := types.Template{
		Identifier:   "train",
		AliasPattern: "train-{i}",
		GPUSpec:      "2xA100",
		StorageSpec:  "500GB",
	}

	if err := doc.AddTemplate(tmpl, false); err != nil {
		t.Fatalf("Failed to add template: %v", err)
	}
	if err := doc.AddTemplate(tmpl, false); err != ErrTemplateExists {
		t.Errorf("Expected ErrTemplateExists, got %v", err)
	}

	bad := tmpl
	bad.Identifier = "bad"
	bad.AliasPattern = "no-placeholder"
	if err := doc.AddTemplate(bad, false); err != types.ErrBadAliasPattern {
		t.Errorf("Expected ErrBadAliasPattern, got %v", err)
	}

	removed, err := doc.RemoveTemplate("train")
	if err != nil {
		t.Fatalf("Failed to remove template: %v", err)
	}
	if removed.AliasPattern != "train-{i}" {
		t.Errorf("Expected removed template train-{i}, got %s", removed.AliasPattern)
	}
	if _, err := doc.RemoveTemplate("train"); err != ErrTemplateNotFound {
		t.Errorf("Expected ErrTemplateNotFound, got %v", err)
	}
}

func TestCorruptFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, podsFile)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	_, err := New(root).Load()
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("Expected CorruptError, got %v", err)
	}
	if corrupt.Path != path {
		t.Errorf("Expected path %s in error, got %s", path, corrupt.Path)
	}

	// The corrupt file must be preserved for inspection, not overwritten
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to re-read file: %v", err)
	}
	if string(data) != "{not json" {
		t.Errorf("Corrupt file was modified: %q", string(data))
	}
}

func TestInterruptedWriteKeepsPreviousDocument(t *testing.T) {
	root := t.TempDir()
	store := New(root)

	if err := store.Mutate(func(doc *Document) error {
		return doc.AddAlias("train-1", "pod-a", false)
	}); err != nil {
		t.Fatalf("Failed initial mutate: %v", err)
	}

	// Fail the final rename, as if the process died mid-write
	rename = func(oldpath, newpath string) error {
		return errors.New("injected rename failure")
	}
	defer func() { rename = os.Rename }()

	err := store.Mutate(func(doc *Document) error {
		return doc.AddAlias("train-2", "pod-b", false)
	})
	if err == nil {
		t.Fatal("Expected mutate to fail")
	}

	rename = os.Rename
	doc, err := store.Load()
	if err != nil {
		t.Fatalf("Failed to reload after interrupted write: %v", err)
	}
	if _, err := doc.PodID("train-1"); err != nil {
		t.Errorf("Previous document lost: %v", err)
	}
	if _, err := doc.PodID("train-2"); err != ErrAliasNotFound {
		t.Errorf("Partial write observed: %v", err)
	}

	// No temp files left behind
	entries, _ := os.ReadDir(root)
	for _, e := range entries {
		if e.Name() != podsFile {
			t.Errorf("Unexpected leftover file: %s", e.Name())
		}
	}
}

func TestTasksRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := New(root)

	tasks, err := store.LoadTasks()
	if err != nil {
		t.Fatalf("Failed to load empty tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("Expected no tasks, got %d", len(tasks))
	}

	err = store.MutateTasks(func(tasks []types.ScheduledTask) ([]types.ScheduledTask, error) {
		return append(tasks, types.ScheduledTask{
			ID:        "task-1",
			Action:    types.ActionStop,
			Alias:     "train-1",
			WhenEpoch: 1700000000,
			Status:    types.TaskPending,
		}), nil
	})
	if err != nil {
		t.Fatalf("Failed to mutate tasks: %v", err)
	}

	tasks, err = New(root).LoadTasks()
	if err != nil {
		t.Fatalf("Failed to reload tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "task-1" || tasks[0].Status != types.TaskPending {
		t.Errorf("Unexpected tasks after reload: %+v", tasks)
	}
}
