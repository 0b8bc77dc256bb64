// Package config provides configuration loading and structs for the bookflow server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/bookflow/internal/errs"
)

// Environment overrides.
const (
	EnvAPIKey    = "GROQ_API_KEY"
	EnvTargetURL = "BOOKFLOW_TARGET_URL"
)

// Config holds all configuration for the application.
type Config struct {
	Debug         bool                `yaml:"debug"`
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Search        SearchConfig        `yaml:"search"`
	LLM           LLMConfig           `yaml:"llm"`
	Scraper       ScraperConfig       `yaml:"scraper"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host" validate:"required"`
	Port           int           `yaml:"port" validate:"min=1,max=65535"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path" validate:"required"`
	BleveIndexPath  string `yaml:"bleve_index_path" validate:"required"`
	VectorIndexPath string `yaml:"vector_index_path" validate:"required"`
}

// EmbeddingConfig holds embedder settings. Without a loadable ONNX model the
// hash embedder is used.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions" validate:"min=1"`
	MaxTokens  int    `yaml:"max_tokens" validate:"min=1"`
	CacheSize  int    `yaml:"cache_size" validate:"min=0"`
}

// SearchConfig holds result counts for the search endpoints.
type SearchConfig struct {
	TextResults  int  `yaml:"text_results" validate:"min=1"`
	VoiceResults int  `yaml:"voice_results" validate:"min=1"`
	MaxResults   int  `yaml:"max_results" validate:"min=1"`
	Fuzzy        bool `yaml:"fuzzy"`
}

// LLMConfig holds the completion client and retry settings.
type LLMConfig struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url" validate:"required,url"`
	Model             string        `yaml:"model" validate:"required"`
	MaxAttempts       int           `yaml:"max_attempts" validate:"min=1"`
	Cooldown          time.Duration `yaml:"cooldown" validate:"min=0"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" validate:"min=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"min=0"`
	Burst             int           `yaml:"burst" validate:"min=1"`
}

// ScraperConfig holds scraping settings.
type ScraperConfig struct {
	TargetURL     string        `yaml:"target_url" validate:"required,url"`
	ContentClass  string        `yaml:"content_class" validate:"required"`
	MinWords      int           `yaml:"min_words" validate:"min=1"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	WorkerTimeout time.Duration `yaml:"worker_timeout"`
	SnapshotDir   string        `yaml:"snapshot_dir" validate:"required"`
	UserAgent     string        `yaml:"user_agent"`
	// InProcess skips the worker process; used for local debugging.
	InProcess bool `yaml:"in_process"`
}

// TranscriptionConfig holds speech-to-text settings. The API key is shared with LLM.
type TranscriptionConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	TempDir string `yaml:"temp_dir"`
}

// PipelineConfig holds document naming and lineage settings.
type PipelineConfig struct {
	IDPrefix        string `yaml:"id_prefix" validate:"required"`
	PreviewLength   int    `yaml:"preview_length" validate:"min=1"`
	EditorID        string `yaml:"editor_id" validate:"required"`
	LineageMaxDepth int    `yaml:"lineage_max_depth" validate:"min=1"`
}

var validate = validator.New()

// Load reads and parses the config file at path, applies defaults and
// environment overrides, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Scraper.SnapshotDir = expandPath(cfg.Scraper.SnapshotDir, configDir)
	if cfg.Transcription.TempDir != "" {
		cfg.Transcription.TempDir = expandPath(cfg.Transcription.TempDir, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides settings from the environment.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTargetURL)); v != "" {
		cfg.Scraper.TargetURL = v
	}
}

// Validate checks field constraints. The API key is not required here: only
// the commands that call the LLM need it.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errs.Configuration(fmt.Sprintf("invalid config: %v", err))
	}
	return nil
}

// Save writes the config to path. The API key is never written.
func Save(path string, cfg *Config) error {
	out := *cfg
	out.LLM.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
