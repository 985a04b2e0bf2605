package spec

import (
	"fmt"
	"strconv"
	"strings"
)

// GPU is a parsed GPU specification: how many of which model.
type GPU struct {
	Count int
	Model string
}

func (g GPU) String() string {
	return fmt.Sprintf("%dx%s", g.Count, g.Model)
}

// GPUType is one entry of the provider's GPU inventory.
type GPUType struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	MemoryGB    float64 `json:"memoryInGb"`
}

// GPUNotFoundError means no inventory entry matched the requested model.
type GPUNotFoundError struct {
	Model string
}

func (e *GPUNotFoundError) Error() string {
	return fmt.Sprintf("no GPU type matches %q (try e.g. A100, H100, L40S)", e.Model)
}

// ParseGPU parses a spec like "2xA100" or "h100" (count defaults to 1).
// The string splits on the first case-insensitive 'x' only when the
// prefix before it is entirely numeric, so model names containing 'x'
// (e.g. RTX4090) parse as a bare model.
func ParseGPU(s string) (GPU, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return GPU{}, fmt.Errorf("gpu spec cannot be empty")
	}

	if idx := strings.IndexAny(s, "xX"); idx > 0 && allDigits(s[:idx]) {
		count, err := strconv.Atoi(s[:idx])
		if err != nil {
			return GPU{}, fmt.Errorf("invalid gpu count in %q: %w", s, err)
		}
		if count < 1 {
			return GPU{}, fmt.Errorf("gpu count must be >= 1, got %d", count)
		}
		model := strings.ToUpper(strings.TrimSpace(s[idx+1:]))
		if model == "" {
			return GPU{}, fmt.Errorf("gpu model missing in %q, expected NxMODEL like 2xA100", s)
		}
		return GPU{Count: count, Model: model}, nil
	}

	return GPU{Count: 1, Model: strings.ToUpper(s)}, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ResolveGPUType picks the inventory entry for a parsed model: every
// entry whose ID or display name contains the model (case-insensitive)
// is a candidate, and the one with the most VRAM wins. Ties keep
// inventory order.
func ResolveGPUType(model string, inventory []GPUType) (GPUType, error) {
	model = strings.ToUpper(model)

	var best GPUType
	found := false
	for _, gt := range inventory {
		if !strings.Contains(strings.ToUpper(gt.ID), model) &&
			!strings.Contains(strings.ToUpper(gt.DisplayName), model) {
			continue
		}
		if !found || gt.MemoryGB > best.MemoryGB {
			best = gt
			found = true
		}
	}
	if !found {
		return GPUType{}, &GPUNotFoundError{Model: model}
	}
	return best, nil
}
