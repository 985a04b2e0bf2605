package spec

import (
	"errors"
	"testing"
)

func TestParseGPU(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    GPU
		wantErr bool
	}{
		{"count and model", "2xA100", GPU{Count: 2, Model: "A100"}, false},
		{"uppercase separator", "4XH100", GPU{Count: 4, Model: "H100"}, false},
		{"bare model", "h100", GPU{Count: 1, Model: "H100"}, false},
		{"model containing x", "RTX4090", GPU{Count: 1, Model: "RTX4090"}, false},
		{"lowercase model with x", "rtx4090", GPU{Count: 1, Model: "RTX4090"}, false},
		{"model with suffix", "2xH100-PCIE", GPU{Count: 2, Model: "H100-PCIE"}, false},
		{"empty", "", GPU{}, true},
		{"zero count", "0xA100", GPU{}, true},
		{"missing model", "2x", GPU{}, true},
		{"whitespace model", "3x  ", GPU{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGPU(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGPU(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseGPU(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestGPUString(t *testing.T) {
	g := GPU{Count: 2, Model: "A100"}
	if g.String() != "2xA100" {
		t.Errorf("String() = %s, want 2xA100", g.String())
	}
}

func TestResolveGPUType(t *testing.T) {
	inventory := []GPUType{
		{ID: "H100SXM", DisplayName: "NVIDIA H100 SXM", MemoryGB: 80},
		{ID: "H100PCIE", DisplayName: "NVIDIA H100 PCIe", MemoryGB: 80},
		{ID: "H100NVL", DisplayName: "NVIDIA H100 NVL", MemoryGB: 94},
		{ID: "RTX4090", DisplayName: "NVIDIA GeForce RTX 4090", MemoryGB: 24},
	}

	t.Run("highest vram wins", func(t *testing.T) {
		got, err := ResolveGPUType("H100", inventory)
		if err != nil {
			t.Fatalf("ResolveGPUType failed: %v", err)
		}
		if got.ID != "H100NVL" {
			t.Errorf("Expected H100NVL, got %s", got.ID)
		}
	})

	t.Run("case insensitive display name match", func(t *testing.T) {
		got, err := ResolveGPUType("geforce", inventory)
		if err != nil {
			t.Fatalf("ResolveGPUType failed: %v", err)
		}
		if got.ID != "RTX4090" {
			t.Errorf("Expected RTX4090, got %s", got.ID)
		}
	})

	t.Run("tie keeps inventory order", func(t *testing.T) {
		got, err := ResolveGPUType("H100S", inventory)
		if err != nil {
			t.Fatalf("ResolveGPUType failed: %v", err)
		}
		if got.ID != "H100SXM" {
			t.Errorf("Expected H100SXM, got %s", got.ID)
		}
	})

	t.Run("no match", func(t *testing.T) {
		_, err := ResolveGPUType("B200", inventory)
		var notFound *GPUNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("Expected GPUNotFoundError, got %v", err)
		}
		if notFound.Model != "B200" {
			t.Errorf("Expected model B200 in error, got %s", notFound.Model)
		}
	})
}

func TestParseStorage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"gigabytes", "500GB", 500, false},
		{"lowercase", "500gb", 500, false},
		{"terabytes", "1TB", 1000, false},
		{"tebibytes", "1TiB", 1024, false},
		{"gibibytes", "100GiB", 107, false},
		{"with spaces", " 250 GB ", 250, false},
		{"fractional", "0.5TB", 500, false},
		{"no unit", "500", 0, true},
		{"too small", "5GB", 0, true},
		{"garbage", "lotsGB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStorage(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStorage(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseStorage(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseConfigFlags(t *testing.T) {
	cfg, err := ParseConfigFlags([]string{"path=/workspace/x", "team=research"})
	if err != nil {
		t.Fatalf("ParseConfigFlags failed: %v", err)
	}
	if cfg.Path() != "/workspace/x" {
		t.Errorf("Expected path /workspace/x, got %s", cfg.Path())
	}
	if cfg["team"] != "research" {
		t.Errorf("Expected opaque key team=research, got %q", cfg["team"])
	}

	cfg, err = ParseConfigFlags([]string{"path="})
	if err != nil {
		t.Fatalf("ParseConfigFlags failed: %v", err)
	}
	if v, ok := cfg["path"]; !ok || v != "" {
		t.Errorf("Empty value must be preserved as a clear request, got %v", cfg)
	}

	if _, err := ParseConfigFlags([]string{"noequals"}); err == nil {
		t.Error("Expected error for flag without =")
	}
	if _, err := ParseConfigFlags([]string{"=value"}); err == nil {
		t.Error("Expected error for empty key")
	}
}
