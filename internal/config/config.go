package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	PolicyFallback = "fallback"
	PolicyStrict   = "strict"

	BatchContinue = "continue"
	BatchAbort    = "abort"
)

// LLMConfig holds the text-generation provider settings
type LLMConfig struct {
	Provider    string   `yaml:"provider"` // "gemini", "openai", "anthropic" or "script"
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`        // default for the direct process route
	IngestModel string   `yaml:"ingest_model"` // model used while ingesting
	MaxTokens   int      `yaml:"max_tokens"`
	PromptPath  string   `yaml:"prompt_path"` // optional override of the built-in prompt
	Script      []string `yaml:"script"`      // command for the "script" provider
}

type TransformConfig struct {
	Policy      string `yaml:"policy"`       // "fallback" or "strict"
	BatchPolicy string `yaml:"batch_policy"` // "continue" or "abort"
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ScheduleConfig struct {
	DailyAt string `yaml:"daily_at"`
}

// Config holds application configuration
type Config struct {
	Addr           string          `yaml:"addr"`
	WorkspaceRoot  string          `yaml:"workspace_root"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	Python         string          `yaml:"python"`
	PullScript     string          `yaml:"pull_script"`
	PullTimeout    time.Duration   `yaml:"pull_timeout"`
	AnalyzeTimeout time.Duration   `yaml:"analyze_timeout"`
	RunLock        bool            `yaml:"run_lock"`
	LockTTL        time.Duration   `yaml:"lock_ttl"`
	LLM            LLMConfig       `yaml:"llm"`
	Transform      TransformConfig `yaml:"transform"`
	DatabaseURL    string          `yaml:"database_url"`
	RedisURL       string          `yaml:"redis_url"`
	ManifestPath   string          `yaml:"manifest_path"`
	Log            LogConfig       `yaml:"log"`
	Schedule       ScheduleConfig  `yaml:"schedule"`
}

// Default returns the configuration used when neither file nor environment set a value.
func Default() *Config {
	return &Config{
		Addr:           ":8080",
		WorkspaceRoot:  "..",
		AllowedOrigins: []string{"http://localhost:3000"},
		Python:         "python3",
		PullScript:     "main.py",
		AnalyzeTimeout: time.Minute,
		RunLock:        true,
		LockTTL:        30 * time.Minute,
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash-preview-05-20",
			IngestModel: "gemini-2.0-flash",
			MaxTokens:   8192,
		},
		Transform: TransformConfig{
			Policy:      PolicyFallback,
			BatchPolicy: BatchContinue,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Schedule: ScheduleConfig{DailyAt: "08:00"},
	}
}

// Load loads configuration from the config file and environment variables.
// Environment variables take precedence over config file values.
func Load() (*Config, error) {
	cfg := Default()

	if err := cfg.loadFromFile(configPath()); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg.loadFromEnv()

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if addr := os.Getenv("ADDR"); addr != "" {
		c.Addr = addr
	}
	if root := os.Getenv("WORKSPACE_ROOT"); root != "" {
		c.WorkspaceRoot = root
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		c.AllowedOrigins = append(c.AllowedOrigins, frontendURL)
	}
	if python := os.Getenv("PYTHON_BIN"); python != "" {
		c.Python = python
	}
	if v := os.Getenv("RUN_LOCK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.RunLock = b
		}
	}

	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}
	if baseURL := os.Getenv("LLM_BASE_URL"); baseURL != "" {
		c.LLM.BaseURL = baseURL
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = providerKeyFromEnv(c.LLM.Provider)
	}

	if policy := os.Getenv("TRANSFORM_POLICY"); policy != "" {
		c.Transform.Policy = policy
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.DatabaseURL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		c.RedisURL = url
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		c.Log.File = file
	}
}

// providerKeyFromEnv falls back to the key variable each provider documents.
func providerKeyFromEnv(provider string) string {
	var names []string
	switch provider {
	case "openai":
		names = []string{"OPENAI_API_KEY"}
	case "anthropic":
		names = []string{"ANTHROPIC_API_KEY"}
	case "gemini", "":
		names = []string{"GEMINI_API_KEY", "API_KEY"}
	}

	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func (c *Config) normalize() error {
	switch c.Transform.Policy {
	case PolicyFallback, PolicyStrict:
	default:
		return fmt.Errorf("unknown transform policy %q", c.Transform.Policy)
	}

	switch c.Transform.BatchPolicy {
	case BatchContinue, BatchAbort:
	default:
		return fmt.Errorf("unknown batch policy %q", c.Transform.BatchPolicy)
	}

	root, err := filepath.Abs(c.WorkspaceRoot)
	if err != nil {
		return fmt.Errorf("resolving workspace root: %w", err)
	}
	c.WorkspaceRoot = root

	if c.PullScript != "" && !filepath.IsAbs(c.PullScript) {
		c.PullScript = filepath.Join(root, c.PullScript)
	}
	if c.ManifestPath == "" {
		c.ManifestPath = filepath.Join(root, "data", "manifest.db")
	}
	if c.LLM.IngestModel == "" {
		c.LLM.IngestModel = c.LLM.Model
	}

	if _, err := ParseClock(c.Schedule.DailyAt); err != nil {
		return err
	}

	return nil
}

// ParseClock parses an "HH:MM" wall-clock time into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}

	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, nil
}

// configPath returns the path to the config file
// Priority: $WISGEN_CONFIG > ./wisgen.yaml
func configPath() string {
	if path := os.Getenv("WISGEN_CONFIG"); path != "" {
		return path
	}
	return "wisgen.yaml"
}
