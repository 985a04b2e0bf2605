// Package config resolves the tool's settings: the config directory,
// the optional config.yaml overrides, and the provider API key.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// APIKeyEnv overrides the stored API key when set.
	APIKeyEnv = "RUNPOD_API_KEY"
	// RootEnv overrides the default config directory when set.
	RootEnv = "RPOD_CONFIG_DIR"

	configFile = "config.yaml"
	apiKeyFile = "api_key"
)

// Config holds tool-level settings. Everything has a default; the YAML
// file only needs the keys the user wants to override.
type Config struct {
	APIEndpoint     string `yaml:"api_endpoint"`
	DefaultImage    string `yaml:"default_image"`
	Ports           string `yaml:"ports"`
	ContainerDiskGB int    `yaml:"container_disk_gb"`
	SSHUser         string `yaml:"ssh_user"`
	IdentityFile    string `yaml:"identity_file"`
	SSHConfigPath   string `yaml:"ssh_config_path"`
}

// DefaultRoot returns the per-user config directory, honoring RootEnv.
func DefaultRoot() (string, error) {
	if root := os.Getenv(RootEnv); root != "" {
		return root, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "rpod"), nil
}

// Load reads config.yaml under root if it exists and fills in defaults.
func Load(root string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(filepath.Join(root, configFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configFile, err)
		}
	}

	setDefaults(cfg, root)
	return cfg, nil
}

func setDefaults(cfg *Config, root string) {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = "https://api.runpod.io/graphql"
	}
	if cfg.DefaultImage == "" {
		cfg.DefaultImage = "runpod/pytorch:2.8.0-py3.11-cuda12.8.1-cudnn-devel-ubuntu22.04"
	}
	if cfg.Ports == "" {
		cfg.Ports = "22/tcp"
	}
	if cfg.ContainerDiskGB == 0 {
		cfg.ContainerDiskGB = 20
	}
	if cfg.SSHUser == "" {
		cfg.SSHUser = "root"
	}
	if cfg.IdentityFile == "" {
		cfg.IdentityFile = "~/.ssh/runpod"
	}
	if cfg.SSHConfigPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.SSHConfigPath = filepath.Join(home, ".ssh", "config")
		} else {
			// No home dir; keep it relative to the state root
			cfg.SSHConfigPath = filepath.Join(root, "ssh_config")
		}
	}
}

// APIKey resolves the provider credential: the environment variable
// wins, then the one-line api_key file under root.
func APIKey(root string) (string, error) {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		return key, nil
	}

	data, err := os.ReadFile(filepath.Join(root, apiKeyFile))
	if os.IsNotExist(err) {
		return "", fmt.Errorf("no API key: set %s or write %s", APIKeyEnv, filepath.Join(root, apiKeyFile))
	}
	if err != nil {
		return "", fmt.Errorf("read API key: %w", err)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("API key file %s is empty", filepath.Join(root, apiKeyFile))
	}
	return key, nil
}

// SaveAPIKey stores the credential under root with owner-only access.
func SaveAPIKey(root, key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("API key cannot be empty")
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	path := filepath.Join(root, apiKeyFile)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(key)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write API key: %w", err)
	}
	return nil
}
