package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danpasecinic/rpod/internal/types"
)

const (
	podsFile  = "pods.json"
	tasksFile = "tasks.json"
)

// rename is swapped out by tests to simulate a crash between the temp
// write and the final rename.
var rename = os.Rename

// CorruptError means an on-disk state file exists but cannot be parsed.
// The file is left untouched for inspection; no operation that needs
// the store proceeds past it.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("state file %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Store is the durable source of truth for tracked pods, templates, and
// scheduled tasks. It holds no in-process cache: every invocation loads
// fresh from disk, so separate processes coordinate only through the
// files. Writes are atomic (temp file then rename); a reader never sees
// a partial document.
type Store struct {
	root string
}

// New creates a store rooted at dir. The directory is created lazily on
// first write.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the configuration directory backing the store.
func (s *Store) Root() string { return s.root }

func (s *Store) podsPath() string  { return filepath.Join(s.root, podsFile) }
func (s *Store) tasksPath() string { return filepath.Join(s.root, tasksFile) }

// Load reads the current document. A missing file yields an empty valid
// document; unparsable content yields a CorruptError.
func (s *Store) Load() (*Document, error) {
	doc := newDocument()
	if err := readJSON(s.podsPath(), doc); err != nil {
		return nil, err
	}
	doc.normalize()
	return doc, nil
}

// Mutate loads the document, applies fn, and persists the result. The
// on-disk file is either the pre- or post-mutation content in full.
// If fn returns an error nothing is written.
func (s *Store) Mutate(fn func(*Document) error) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return writeJSON(s.podsPath(), doc)
}

// LoadTasks reads all scheduled tasks.
func (s *Store) LoadTasks() ([]types.ScheduledTask, error) {
	tasks := []types.ScheduledTask{}
	if err := readJSON(s.tasksPath(), &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// MutateTasks loads the task list, applies fn, and persists the result
// atomically. fn returns the new list to write.
func (s *Store) MutateTasks(fn func([]types.ScheduledTask) ([]types.ScheduledTask, error)) error {
	tasks, err := s.LoadTasks()
	if err != nil {
		return err
	}
	tasks, err = fn(tasks)
	if err != nil {
		return err
	}
	return writeJSON(s.tasksPath(), tasks)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &CorruptError{Path: path, Err: err}
	}
	return nil
}

// writeJSON writes v to path via a temp file in the same directory and
// an atomic rename. A failure partway leaves the previous file intact.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
