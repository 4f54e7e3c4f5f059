package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.RecgestAPIKey = "k"
	cfg.OpenAIAPIKey = "sk-test"
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.TriageBatchSize != 10 {
		t.Errorf("expected triage batch 10, got %d", cfg.TriageBatchSize)
	}
	if cfg.ExtractMaxChars != 12000 || cfg.ExtractOverlapChars != 600 {
		t.Errorf("unexpected extract budget %d/%d", cfg.ExtractMaxChars, cfg.ExtractOverlapChars)
	}
	if cfg.Strictness != "medium" {
		t.Errorf("expected medium strictness, got %q", cfg.Strictness)
	}
}

func TestLoad_YAMLThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recgest.yaml")
	yml := "port: \"9000\"\nstrictness: strict\nllm_timeout: 30s\ntaxonomy:\n  - Labs\n  - Imaging\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9100" {
		t.Errorf("env should override yaml port, got %q", cfg.Port)
	}
	if cfg.Strictness != "strict" {
		t.Errorf("expected strict from yaml, got %q", cfg.Strictness)
	}
	if cfg.LLMTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.LLMTimeout)
	}
	if len(cfg.Taxonomy) != 2 || cfg.Taxonomy[0] != "Labs" {
		t.Errorf("unexpected taxonomy %v", cfg.Taxonomy)
	}
}

func TestLoad_MissingExplicitConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestClamp_OverlapNeverReachesMax(t *testing.T) {
	cfg := Defaults()
	cfg.ExtractMaxChars = 1000
	cfg.ExtractOverlapChars = 1000
	cfg.clamp()
	if cfg.ExtractOverlapChars >= cfg.ExtractMaxChars {
		t.Errorf("overlap %d must be below max %d", cfg.ExtractOverlapChars, cfg.ExtractMaxChars)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing service key", func(c *Config) { c.RecgestAPIKey = "" }, true},
		{"missing openai key", func(c *Config) { c.OpenAIAPIKey = "" }, true},
		{"anthropic without key", func(c *Config) { c.LLMProvider = "anthropic" }, true},
		{"anthropic with key", func(c *Config) { c.LLMProvider = "anthropic"; c.AnthropicAPIKey = "a" }, false},
		{"unknown provider", func(c *Config) { c.LLMProvider = "gemini" }, true},
		{"bad strictness", func(c *Config) { c.Strictness = "lenient" }, true},
		{"documentai incomplete", func(c *Config) { c.DocumentConverter = "documentai" }, true},
		{"documentai complete", func(c *Config) {
			c.DocumentConverter = "documentai"
			c.DocumentAIProject = "p"
			c.DocumentAIProcessorID = "proc"
		}, false},
		{"redis without addr", func(c *Config) { c.CacheBackend = "redis" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
