package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port    string `yaml:"port"`
	LogMode string `yaml:"log_mode"`

	// Auth
	RecgestAPIKey string `yaml:"-"`

	// Storage
	DBPath string `yaml:"db_path"`

	// Text completion
	LLMProvider     string        `yaml:"llm_provider"`
	OpenAIAPIKey    string        `yaml:"-"`
	OpenAIModel     string        `yaml:"openai_model"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"`
	AnthropicAPIKey string        `yaml:"-"`
	AnthropicModel  string        `yaml:"anthropic_model"`
	LLMMaxAttempts  int           `yaml:"llm_max_attempts"`
	LLMTimeout      time.Duration `yaml:"llm_timeout"`

	// Pipeline budgets
	Strictness          string `yaml:"strictness"`
	TriageBatchSize     int    `yaml:"triage_batch_size"`
	TriagePathMax       int    `yaml:"triage_path_max"`
	TriagePreviewMax    int    `yaml:"triage_preview_max"`
	ExtractMaxChars     int    `yaml:"extract_max_chars"`
	ExtractOverlapChars int    `yaml:"extract_overlap_chars"`
	ClassifyBatchSize   int    `yaml:"classify_batch_size"`
	ClassifyMaxChars    int    `yaml:"classify_max_chars"`
	ClassifyItemMax     int    `yaml:"classify_item_max"`

	Taxonomy []string `yaml:"taxonomy"`

	// Document conversion
	DocumentConverter          string `yaml:"document_converter"`
	DocumentAIProject          string `yaml:"documentai_project"`
	DocumentAILocation         string `yaml:"documentai_location"`
	DocumentAIProcessorID      string `yaml:"documentai_processor_id"`
	DocumentAIProcessorVersion string `yaml:"documentai_processor_version"`
	PDFFallbackPdftotext       bool   `yaml:"pdf_fallback_pdftotext"`

	// Response cache
	CacheBackend string        `yaml:"cache_backend"`
	RedisAddr    string        `yaml:"redis_addr"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:    "8090",
		LogMode: "prod",

		DBPath: "recgest.db",

		LLMProvider:    "openai",
		OpenAIModel:    "gpt-5.2",
		OpenAIBaseURL:  "https://api.openai.com",
		AnthropicModel: "claude-sonnet-4-5-20250929",
		LLMMaxAttempts: 5,
		LLMTimeout:     90 * time.Second,

		Strictness:          "medium",
		TriageBatchSize:     10,
		TriagePathMax:       160,
		TriagePreviewMax:    1400,
		ExtractMaxChars:     12000,
		ExtractOverlapChars: 600,
		ClassifyBatchSize:   40,
		ClassifyMaxChars:    12000,
		ClassifyItemMax:     500,

		DocumentConverter:    "local",
		DocumentAILocation:   "us",
		PDFFallbackPdftotext: true,

		CacheBackend: "memory",
		CacheTTL:     24 * time.Hour,

		WorkerCount:  2,
		MaxQueueSize: 50,

		MaxUploadBytes: 52428800, // 50MB

		JobTTL: 1 * time.Hour,
	}
}

// Load reads .env (if present), then the YAML file at CONFIG_PATH
// (default recgest.yaml, optional), then environment overrides.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	path := envOr("CONFIG_PATH", "recgest.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if os.Getenv("CONFIG_PATH") != "" {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(&cfg)
	cfg.clamp()
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = envOr("PORT", cfg.Port)
	cfg.LogMode = envOr("LOG_MODE", cfg.LogMode)

	cfg.RecgestAPIKey = os.Getenv("RECGEST_API_KEY")
	cfg.DBPath = envOr("DB_PATH", cfg.DBPath)

	cfg.LLMProvider = strings.ToLower(envOr("LLM_PROVIDER", cfg.LLMProvider))
	cfg.OpenAIAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	cfg.OpenAIModel = envOr("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = envOr("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.AnthropicAPIKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	cfg.AnthropicModel = envOr("ANTHROPIC_MODEL", cfg.AnthropicModel)
	cfg.LLMMaxAttempts = envInt("LLM_MAX_ATTEMPTS", cfg.LLMMaxAttempts)
	cfg.LLMTimeout = envDuration("LLM_TIMEOUT", cfg.LLMTimeout)

	cfg.Strictness = strings.ToLower(strings.TrimSpace(envOr("GUIDELINE_OPENAI_STRICTNESS", cfg.Strictness)))
	cfg.TriageBatchSize = envInt("TRIAGE_BATCH_SIZE", cfg.TriageBatchSize)
	cfg.TriagePathMax = envInt("TRIAGE_PATH_MAX", cfg.TriagePathMax)
	cfg.TriagePreviewMax = envInt("TRIAGE_PREVIEW_MAX", cfg.TriagePreviewMax)
	cfg.ExtractMaxChars = envInt("EXTRACT_MAX_CHARS", cfg.ExtractMaxChars)
	cfg.ExtractOverlapChars = envInt("EXTRACT_OVERLAP_CHARS", cfg.ExtractOverlapChars)
	cfg.ClassifyBatchSize = envInt("CLASSIFY_BATCH_SIZE", cfg.ClassifyBatchSize)
	cfg.ClassifyMaxChars = envInt("CLASSIFY_MAX_CHARS", cfg.ClassifyMaxChars)
	cfg.ClassifyItemMax = envInt("CLASSIFY_ITEM_MAX", cfg.ClassifyItemMax)

	cfg.DocumentConverter = strings.ToLower(envOr("DOCUMENT_CONVERTER", cfg.DocumentConverter))
	cfg.DocumentAIProject = envOr("DOCUMENTAI_PROJECT", cfg.DocumentAIProject)
	cfg.DocumentAILocation = envOr("DOCUMENTAI_LOCATION", cfg.DocumentAILocation)
	cfg.DocumentAIProcessorID = envOr("DOCUMENTAI_PROCESSOR_ID", cfg.DocumentAIProcessorID)
	cfg.DocumentAIProcessorVersion = envOr("DOCUMENTAI_PROCESSOR_VERSION", cfg.DocumentAIProcessorVersion)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	cfg.CacheBackend = strings.ToLower(envOr("CACHE_BACKEND", cfg.CacheBackend))
	cfg.RedisAddr = envOr("REDIS_ADDR", cfg.RedisAddr)
	cfg.CacheTTL = envDuration("CACHE_TTL", cfg.CacheTTL)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
}

func (c *Config) clamp() {
	d := Defaults()
	clampInt(&c.LLMMaxAttempts, d.LLMMaxAttempts)
	clampInt(&c.TriageBatchSize, d.TriageBatchSize)
	clampInt(&c.TriagePathMax, d.TriagePathMax)
	clampInt(&c.TriagePreviewMax, d.TriagePreviewMax)
	clampInt(&c.ExtractMaxChars, d.ExtractMaxChars)
	clampInt(&c.ClassifyBatchSize, d.ClassifyBatchSize)
	clampInt(&c.ClassifyMaxChars, d.ClassifyMaxChars)
	clampInt(&c.ClassifyItemMax, d.ClassifyItemMax)
	clampInt(&c.WorkerCount, d.WorkerCount)
	clampInt(&c.MaxQueueSize, d.MaxQueueSize)

	if c.ExtractOverlapChars < 0 || c.ExtractOverlapChars >= c.ExtractMaxChars {
		c.ExtractOverlapChars = c.ExtractMaxChars / 20
	}
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = d.LLMTimeout
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.Strictness == "" {
		c.Strictness = d.Strictness
	}
}

func (c Config) Validate() error {
	if c.RecgestAPIKey == "" {
		return fmt.Errorf("RECGEST_API_KEY is required")
	}
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.Strictness {
	case "strict", "medium", "loose":
	default:
		return fmt.Errorf("GUIDELINE_OPENAI_STRICTNESS must be strict, medium or loose, got %q", c.Strictness)
	}
	switch c.DocumentConverter {
	case "local":
	case "documentai":
		if c.DocumentAIProject == "" || c.DocumentAILocation == "" || c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENTAI_PROJECT, DOCUMENTAI_LOCATION and DOCUMENTAI_PROCESSOR_ID are required for the documentai converter")
		}
	default:
		return fmt.Errorf("unknown DOCUMENT_CONVERTER %q", c.DocumentConverter)
	}
	switch c.CacheBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	return nil
}

// LLMModel returns the model name for the selected provider.
func (c Config) LLMModel() string {
	if c.LLMProvider == "anthropic" {
		return c.AnthropicModel
	}
	return c.OpenAIModel
}

func clampInt(v *int, fallback int) {
	if *v <= 0 {
		*v = fallback
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
