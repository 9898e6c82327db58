package config

import "testing"

func TestDefaultGlobalConfig(t *testing.T) {
	cfg := DefaultGlobalConfig()
	if cfg.DefaultRegion != "us-east-1" {
		t.Errorf("DefaultRegion = %q", cfg.DefaultRegion)
	}
	if cfg.ConsentTTLSeconds != 300 {
		t.Errorf("ConsentTTLSeconds = %d", cfg.ConsentTTLSeconds)
	}
	if cfg.MaxTokens != 50000 {
		t.Errorf("MaxTokens = %d", cfg.MaxTokens)
	}
	if cfg.ReadOnly {
		t.Error("ReadOnly must default to false")
	}
	if cfg.AuditDBPath == "" {
		t.Error("AuditDBPath must have a default")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CLOUDGATE_DEFAULT_REGION", "eu-central-1")
	t.Setenv("CLOUDGATE_READ_ONLY", "true")
	t.Setenv("CLOUDGATE_CONSENT_TTL", "60")
	t.Setenv("CLOUDGATE_MAX_TOKENS", "1000")

	cfg := DefaultGlobalConfig()
	applyEnvOverrides(&cfg)

	if cfg.DefaultRegion != "eu-central-1" {
		t.Errorf("DefaultRegion = %q", cfg.DefaultRegion)
	}
	if !cfg.ReadOnly {
		t.Error("ReadOnly override not applied")
	}
	if cfg.ConsentTTLSeconds != 60 {
		t.Errorf("ConsentTTLSeconds = %d", cfg.ConsentTTLSeconds)
	}
	if cfg.MaxTokens != 1000 {
		t.Errorf("MaxTokens = %d", cfg.MaxTokens)
	}
}

func TestApplyEnvOverridesIgnoresBadValues(t *testing.T) {
	t.Setenv("CLOUDGATE_READ_ONLY", "definitely")
	t.Setenv("CLOUDGATE_CONSENT_TTL", "-5")

	cfg := DefaultGlobalConfig()
	applyEnvOverrides(&cfg)

	if cfg.ReadOnly {
		t.Error("unparseable boolean must not flip ReadOnly")
	}
	if cfg.ConsentTTLSeconds != 300 {
		t.Errorf("non-positive TTL must keep the default, got %d", cfg.ConsentTTLSeconds)
	}
}
