package state

import (
	"errors"

	"github.com/danpasecinic/rpod/internal/types"
)

var (
	// ErrAliasNotFound is returned when an alias is not in the store
	ErrAliasNotFound = errors.New("alias not found")
	// ErrAliasExists is returned when adding an alias that is already taken
	ErrAliasExists = errors.New("alias already exists")
	// ErrTemplateNotFound is returned when a template is not in the store
	ErrTemplateNotFound = errors.New("template not found")
	// ErrTemplateExists is returned when adding a duplicate template
	ErrTemplateExists = errors.New("template already exists")
	// ErrTaskNotFound is returned when a scheduled task is not in the store
	ErrTaskNotFound = errors.New("task not found")
)

// Document is the single logical document the store persists: tracked
// pods keyed by alias and templates keyed by identifier. Scheduled
// tasks live in a separate file, see Store.LoadTasks.
type Document struct {
	Pods      map[string]types.PodMetadata `json:"pods"`
	Templates map[string]types.Template    `json:"templates,omitempty"`
}

func newDocument() *Document {
	return &Document{
		Pods:      make(map[string]types.PodMetadata),
		Templates: make(map[string]types.Template),
	}
}

// normalize makes a decoded document safe to use: nil maps become empty.
func (d *Document) normalize() {
	if d.Pods == nil {
		d.Pods = make(map[string]types.PodMetadata)
	}
	if d.Templates == nil {
		d.Templates = make(map[string]types.Template)
	}
}

// AddAlias records alias -> podID. Uniqueness is enforced here; force
// replaces an existing record, dropping its config.
func (d *Document) AddAlias(alias, podID string, force bool) error {
	if _, exists := d.Pods[alias]; exists && !force {
		return ErrAliasExists
	}
	d.Pods[alias] = types.PodMetadata{PodID: podID}
	return nil
}

// RemoveAlias deletes the record and returns the pod ID it mapped to.
func (d *Document) RemoveAlias(alias string) (string, error) {
	meta, exists := d.Pods[alias]
	if !exists {
		return "", ErrAliasNotFound
	}
	delete(d.Pods, alias)
	return meta.PodID, nil
}

// PodID resolves an alias to its provider pod ID.
func (d *Document) PodID(alias string) (string, error) {
	meta, exists := d.Pods[alias]
	if !exists {
		return "", ErrAliasNotFound
	}
	return meta.PodID, nil
}

// Config returns a copy of the per-pod config bag for an alias.
func (d *Document) Config(alias string) (types.PodConfig, error) {
	meta, exists := d.Pods[alias]
	if !exists {
		return nil, ErrAliasNotFound
	}
	return meta.Config.Clone(), nil
}

// SetConfigValue sets a config key for an alias. An empty value clears
// the key. Keys other than the recognized ones pass through opaquely.
func (d *Document) SetConfigValue(alias, key, value string) error {
	meta, exists := d.Pods[alias]
	if !exists {
		return ErrAliasNotFound
	}
	if meta.Config == nil {
		meta.Config = make(types.PodConfig)
	}
	if value == "" {
		delete(meta.Config, key)
	} else {
		meta.Config[key] = value
	}
	d.Pods[alias] = meta
	return nil
}

// Aliases returns all alias -> pod ID mappings.
func (d *Document) Aliases() map[string]string {
	out := make(map[string]string, len(d.Pods))
	for alias, meta := range d.Pods {
		out[alias] = meta.PodID
	}
	return out
}

// AddTemplate records a template by identifier.
func (d *Document) AddTemplate(t types.Template, force bool) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, exists := d.Templates[t.Identifier]; exists && !force {
		return ErrTemplateExists
	}
	d.Templates[t.Identifier] = t
	return nil
}

// RemoveTemplate deletes a template and returns it.
func (d *Document) RemoveTemplate(identifier string) (types.Template, error) {
	t, exists := d.Templates[identifier]
	if !exists {
		return types.Template{}, ErrTemplateNotFound
	}
	delete(d.Templates, identifier)
	return t, nil
}
