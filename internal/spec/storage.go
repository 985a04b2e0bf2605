package spec

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/danpasecinic/rpod/internal/types"
)

// MinStorageGB is the provider's smallest usable volume.
const MinStorageGB = 10

// ParseStorage parses a size like "500GB", "1TB", or "0.5TiB" into
// whole gigabytes.
func ParseStorage(s string) (int, error) {
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))

	var num string
	var factor float64
	switch {
	case strings.HasSuffix(cleaned, "GIB"):
		num, factor = cleaned[:len(cleaned)-3], 1.074
	case strings.HasSuffix(cleaned, "TIB"):
		num, factor = cleaned[:len(cleaned)-3], 1024
	case strings.HasSuffix(cleaned, "GB"):
		num, factor = cleaned[:len(cleaned)-2], 1
	case strings.HasSuffix(cleaned, "TB"):
		num, factor = cleaned[:len(cleaned)-2], 1000
	default:
		return 0, fmt.Errorf("storage spec %q must end with GB/GiB/TB/TiB, e.g. 500GB", s)
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid storage size %q: %w", s, err)
	}

	gb := int(math.Round(value * factor))
	if gb < MinStorageGB {
		return 0, fmt.Errorf("storage must be at least %dGB, got %dGB", MinStorageGB, gb)
	}
	return gb, nil
}

// ParseConfigFlags turns repeated key=value flags into a config bag.
// The path key is the only one the tool interprets; anything else is
// kept opaquely. An empty value ("key=") is preserved so the store can
// treat it as a request to clear the key.
func ParseConfigFlags(flags []string) (types.PodConfig, error) {
	cfg := make(types.PodConfig)
	for _, flag := range flags {
		key, value, ok := strings.Cut(flag, "=")
		if !ok {
			return nil, fmt.Errorf("invalid config flag %q, expected key=value (e.g. path=/workspace/project)", flag)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid config flag %q: empty key", flag)
		}
		cfg[key] = strings.TrimSpace(value)
	}
	return cfg, nil
}
