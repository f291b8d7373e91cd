// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type QueueConfig struct {
	Backend          string        `yaml:"backend"` // postgres | memory
	MaxAttempts      int           `yaml:"max_attempts"`
	BackoffBase      time.Duration `yaml:"backoff_base"`
	LowPriorityDelay time.Duration `yaml:"low_priority_delay"`
}

type WorkerConfig struct {
	Count            int           `yaml:"count"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout"`
	CleanupDelay     time.Duration `yaml:"cleanup_delay"`
}

type AIConfig struct {
	OpenAIKey       string            `yaml:"openai_key"`
	GeminiKey       string            `yaml:"gemini_key"`
	GeminiURL       string            `yaml:"gemini_url"`
	CompatKey       string            `yaml:"compat_key"`      // OpenAI-compatible gateway
	CompatBaseURL   string            `yaml:"compat_base_url"` // e.g. self-hosted proxy
	DefaultModel    string            `yaml:"default_model"`
	DefaultProvider string            `yaml:"default_provider"`
	Models          map[string]string `yaml:"models"` // model -> provider
	MaxOutputTokens int               `yaml:"max_output_tokens"`
}

type GitHubConfig struct {
	Token        string `yaml:"token"`
	BotName      string `yaml:"bot_name"`
	BotEmail     string `yaml:"bot_email"`
	BranchPrefix string `yaml:"branch_prefix"`
}

type WorkspaceConfig struct {
	Root            string        `yaml:"root"`
	CloneTimeout    time.Duration `yaml:"clone_timeout"`
	MaxContextFiles int           `yaml:"max_context_files"`
	MaxContextBytes int           `yaml:"max_context_bytes"`
}

type OpsConfig struct {
	Port int `yaml:"port"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Queue     QueueConfig     `yaml:"queue"`
	Workers   WorkerConfig    `yaml:"workers"`
	AI        AIConfig        `yaml:"ai"`
	GitHub    GitHubConfig    `yaml:"github"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Ops       OpsConfig       `yaml:"ops"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()

	// Minimal validation
	if cfg.Queue.Backend == "postgres" && cfg.Database.URL == "" {
		return nil, errors.New("database.url is required for the postgres queue backend")
	}
	if cfg.AI.OpenAIKey == "" && cfg.AI.GeminiKey == "" && cfg.AI.CompatKey == "" {
		return nil, errors.New("at least one AI provider key is required (ai.openai_key, ai.gemini_key or ai.compat_key)")
	}
	if cfg.GitHub.Token == "" {
		return nil, errors.New("github.token is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// ApplyDefaults fills zero values; split out so tests can build configs
// without a file.
func (cfg *Config) ApplyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = "postgres"
	}
	if cfg.Queue.MaxAttempts <= 0 {
		cfg.Queue.MaxAttempts = 3
	}
	if cfg.Queue.BackoffBase <= 0 {
		cfg.Queue.BackoffBase = 2 * time.Second
	}
	if cfg.Queue.LowPriorityDelay <= 0 {
		cfg.Queue.LowPriorityDelay = 5 * time.Second
	}
	if cfg.Workers.Count <= 0 {
		cfg.Workers.Count = 5
	}
	if cfg.Workers.PollInterval <= 0 {
		cfg.Workers.PollInterval = 500 * time.Millisecond
	}
	if cfg.Workers.HeartbeatTimeout <= 0 {
		cfg.Workers.HeartbeatTimeout = 2 * time.Minute
	}
	if cfg.Workers.CleanupDelay <= 0 {
		cfg.Workers.CleanupDelay = 60 * time.Second
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.DefaultProvider == "" {
		cfg.AI.DefaultProvider = "openai"
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		cfg.AI.MaxOutputTokens = 8192
	}
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = os.TempDir() + "/codetask-workspaces"
	}
	if cfg.Workspace.CloneTimeout <= 0 {
		cfg.Workspace.CloneTimeout = 2 * time.Minute
	}
	if cfg.Workspace.MaxContextFiles <= 0 {
		cfg.Workspace.MaxContextFiles = 24
	}
	if cfg.Workspace.MaxContextBytes <= 0 {
		cfg.Workspace.MaxContextBytes = 256 * 1024
	}
	if cfg.Ops.Port <= 0 {
		cfg.Ops.Port = 8090
	}
	if cfg.GitHub.BotName == "" {
		cfg.GitHub.BotName = "codetask-bot"
	}
	if cfg.GitHub.BotEmail == "" {
		cfg.GitHub.BotEmail = "codetask@example.com"
	}
	if cfg.GitHub.BranchPrefix == "" {
		cfg.GitHub.BranchPrefix = "codetask"
	}
}
