// Package config manages CloudGate's global configuration file and its
// environment overrides.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

const (
	ConfigDirName   = ".cloudgate"
	ConfigFileName  = "config.json"
	DefaultLogLevel = "info"
)

// GlobalConfig holds user-level configuration for the CloudGate CLI and
// server.
type GlobalConfig struct {
	DefaultRegion     string `json:"default_region"`
	LogLevel          string `json:"log_level"`
	ConsentTTLSeconds int    `json:"consent_ttl_seconds"`
	AuditDBPath       string `json:"audit_db_path"`
	ReadOnly          bool   `json:"read_only"`
	MaxResults        int    `json:"max_results"` // 0 means no cap
	MaxTokens         int    `json:"max_tokens"`  // response token budget, 0 means no cap
	PreflightIdentity bool   `json:"preflight_identity"`
}

// DefaultGlobalConfig returns sensible defaults.
func DefaultGlobalConfig() GlobalConfig {
	home, _ := os.UserHomeDir()
	return GlobalConfig{
		DefaultRegion:     "us-east-1",
		LogLevel:          DefaultLogLevel,
		ConsentTTLSeconds: 300,
		AuditDBPath:       filepath.Join(home, ConfigDirName, "audit.db"),
		ReadOnly:          false,
		MaxTokens:         50000,
	}
}

// ConfigDir returns the global CloudGate config directory path.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ConfigDirName)
}

// LoadGlobalConfig loads the global config from ~/.cloudgate/config.json,
// then applies environment overrides.
func LoadGlobalConfig() (GlobalConfig, error) {
	path := filepath.Join(ConfigDir(), ConfigFileName)

	cfg := DefaultGlobalConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return GlobalConfig{}, err
		}
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return GlobalConfig{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// SaveGlobalConfig persists the global config to ~/.cloudgate/config.json.
func SaveGlobalConfig(cfg GlobalConfig) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0600)
}

func applyEnvOverrides(cfg *GlobalConfig) {
	if v := os.Getenv("CLOUDGATE_DEFAULT_REGION"); v != "" {
		cfg.DefaultRegion = v
	}
	if v := os.Getenv("CLOUDGATE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CLOUDGATE_AUDIT_DB"); v != "" {
		cfg.AuditDBPath = v
	}
	if v := os.Getenv("CLOUDGATE_READ_ONLY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ReadOnly = b
		}
	}
	if v := os.Getenv("CLOUDGATE_CONSENT_TTL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ConsentTTLSeconds = n
		}
	}
	if v := os.Getenv("CLOUDGATE_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxTokens = n
		}
	}
}
