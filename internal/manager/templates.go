package manager

import (
	"errors"
	"sort"

	"github.com/danpasecinic/rpod/internal/state"
	"github.com/danpasecinic/rpod/internal/types"
)

// ErrBuiltinTemplate is returned when deleting a built-in template.
var ErrBuiltinTemplate = errors.New("built-in templates cannot be deleted")

// Built-in creation profiles. Read-only: a user template with the same
// identifier shadows the built-in, and deleting the user template
// brings the built-in back.
var builtinTemplates = []types.Template{
	{
		Identifier:   "a100",
		AliasPattern: "a100-{i}",
		GPUSpec:      "1xA100",
		StorageSpec:  "100GB",
	},
	{
		Identifier:   "h100",
		AliasPattern: "h100-{i}",
		GPUSpec:      "1xH100",
		StorageSpec:  "100GB",
	},
	{
		Identifier:   "dev",
		AliasPattern: "dev-{i}",
		// "4090" rather than "RTX4090": inventory IDs carry spaces
		// ("GeForce RTX 4090"), so the shorter token is what matches.
		GPUSpec:      "1x4090",
		StorageSpec:  "50GB",
		Config:       types.PodConfig{types.ConfigKeyPath: "/workspace"},
	},
}

// IsBuiltinTemplate reports whether the identifier names a built-in.
func IsBuiltinTemplate(identifier string) bool {
	for _, t := range builtinTemplates {
		if t.Identifier == identifier {
			return true
		}
	}
	return false
}

// Templates returns built-ins and user templates merged, user versions
// shadowing built-ins, sorted by identifier.
func (m *Manager) Templates() ([]types.Template, error) {
	doc, err := m.store.Load()
	if err != nil {
		return nil, err
	}

	merged := make(map[string]types.Template, len(builtinTemplates)+len(doc.Templates))
	for _, t := range builtinTemplates {
		merged[t.Identifier] = t
	}
	for id, t := range doc.Templates {
		merged[id] = t
	}

	out := make([]types.Template, 0, len(merged))
	for _, t := range merged {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}

// Template resolves an identifier, user templates first.
func (m *Manager) Template(identifier string) (types.Template, error) {
	doc, err := m.store.Load()
	if err != nil {
		return types.Template{}, err
	}
	if t, ok := doc.Templates[identifier]; ok {
		return t, nil
	}
	for _, t := range builtinTemplates {
		if t.Identifier == identifier {
			return t, nil
		}
	}
	return types.Template{}, state.ErrTemplateNotFound
}

// AddTemplate stores a user template. Shadowing a built-in is allowed
// without force; replacing an existing user template requires it.
func (m *Manager) AddTemplate(t types.Template, force bool) error {
	return m.store.Mutate(func(doc *state.Document) error {
		return doc.AddTemplate(t, force)
	})
}

// DeleteTemplate removes a user template and returns it. Deleting a
// built-in that has no user shadow is refused.
func (m *Manager) DeleteTemplate(identifier string) (types.Template, error) {
	var removed types.Template
	err := m.store.Mutate(func(doc *state.Document) error {
		var err error
		removed, err = doc.RemoveTemplate(identifier)
		if errors.Is(err, state.ErrTemplateNotFound) && IsBuiltinTemplate(identifier) {
			return ErrBuiltinTemplate
		}
		return err
	})
	if err != nil {
		return types.Template{}, err
	}
	return removed, nil
}
