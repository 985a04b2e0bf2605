package types

import (
	"errors"
	"strconv"
	"strings"
)

// AliasPlaceholder is the numeric placeholder in a template's alias
// pattern, e.g. "train-{i}".
const AliasPlaceholder = "{i}"

// ErrBadAliasPattern is returned when an alias pattern does not contain
// exactly one placeholder.
var ErrBadAliasPattern = errors.New("alias pattern must contain exactly one {i} placeholder")

// Template is a named, reusable pod creation profile. ContainerDiskSpec
// and Image are optional; empty means the system default. Config is
// merged into every pod created from the template.
type Template struct {
	Identifier        string    `json:"identifier"`
	AliasPattern      string    `json:"aliasPattern"`
	GPUSpec           string    `json:"gpuSpec"`
	StorageSpec       string    `json:"storageSpec"`
	ContainerDiskSpec string    `json:"containerDiskSpec,omitempty"`
	Image             string    `json:"image,omitempty"`
	Config            PodConfig `json:"config,omitempty"`
}

// Validate checks the structural requirements of a template.
func (t Template) Validate() error {
	if t.Identifier == "" {
		return errors.New("template identifier cannot be empty")
	}
	if strings.Count(t.AliasPattern, AliasPlaceholder) != 1 {
		return ErrBadAliasPattern
	}
	if t.GPUSpec == "" {
		return errors.New("template gpu spec cannot be empty")
	}
	if t.StorageSpec == "" {
		return errors.New("template storage spec cannot be empty")
	}
	return nil
}

// AliasAt instantiates the pattern with the given index.
func (t Template) AliasAt(i int) string {
	return strings.Replace(t.AliasPattern, AliasPlaceholder, strconv.Itoa(i), 1)
}

// NextAliasIndex returns the lowest i >= 1 whose instantiated alias is
// not taken. Freed slots are reused; this is deliberately not a counter.
func (t Template) NextAliasIndex(taken map[string]string) int {
	for i := 1; ; i++ {
		if _, exists := taken[t.AliasAt(i)]; !exists {
			return i
		}
	}
}
