package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LogLevelEnv overrides log.level when set.
const LogLevelEnv = "FLIRTBOT_LOG_LEVEL"

// CorpusConfig points at the pickup line table.
type CorpusConfig struct {
	// Type is "csv" or "sqlite"; empty infers it from the path extension.
	Type           string `yaml:"type"`
	Path           string `yaml:"path"`
	Table          string `yaml:"table,omitempty"`
	TextColumn     string `yaml:"text_column"`
	LanguageColumn string `yaml:"language_column"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL         string `yaml:"base_url"`
	APIKeyEnv       string `yaml:"api_key_env"`
	Model           string `yaml:"model"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
	BatchSize       int    `yaml:"batch_size"`
	MaxRetries      int    `yaml:"max_retries"`
	RetryBaseMillis int    `yaml:"retry_base_millis"`
}

// HashingEmbedderConfig configures the local feature-hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int               `yaml:"dimension"`
	Synonyms  map[string]string `yaml:"synonyms,omitempty"`
}

// EmbedderConfig selects and configures the text embedder implementation.
//
// Type is "hashing" (default, offline, lexical), "tfidf" (fitted to the corpus)
// or "openai". Only openai with model all-minilm gives semantic matches like
// the sentence-transformers model; the other two match on shared words.
type EmbedderConfig struct {
	Type    string                 `yaml:"type"`
	OpenAI  *OpenAIEmbedderConfig  `yaml:"openai,omitempty"`
	Hashing *HashingEmbedderConfig `yaml:"hashing,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant server.
type QdrantConfig struct {
	Addr      string `yaml:"addr"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	Prefix    string `yaml:"collection_prefix"`
	BatchSize int    `yaml:"batch_size"`
}

// IndexConfig selects the per-language index backend.
type IndexConfig struct {
	Type   string        `yaml:"type"`
	Metric string        `yaml:"metric"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr             string `yaml:"addr"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs"`
}

// LogConfig configures slog.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BuildConfig tunes startup index construction.
type BuildConfig struct {
	Workers int `yaml:"workers"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus   CorpusConfig   `yaml:"corpus"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Index    IndexConfig    `yaml:"index"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Build    BuildConfig    `yaml:"build"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./flirtbot.yaml first, then ~/.config/flirtbot/config.yaml.
// If neither exists, it writes defaults to ~/.config/flirtbot/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "flirtbot.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv applies environment overrides using getenv.
func (c *AppConfig) ApplyEnv(getenv func(string) string) {
	if lvl := strings.TrimSpace(getenv(LogLevelEnv)); lvl != "" {
		c.Log.Level = lvl
	}
}

// Validate rejects unknown component types and malformed values.
func (c *AppConfig) Validate() error {
	var errs []error
	switch c.Corpus.Type {
	case "", "csv", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown corpus type %q", c.Corpus.Type))
	}
	if c.Corpus.Path == "" {
		errs = append(errs, errors.New("corpus.path is required"))
	}
	switch c.Embedder.Type {
	case "hashing", "tfidf":
	case "openai":
		if c.Embedder.OpenAI == nil {
			errs = append(errs, errors.New("embedder.openai section missing"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown embedder %q", c.Embedder.Type))
	}
	switch c.Index.Type {
	case "flat":
		switch c.Index.Metric {
		case "l2", "cosine":
		default:
			errs = append(errs, fmt.Errorf("unknown index metric %q", c.Index.Metric))
		}
	case "qdrant":
		if c.Index.Qdrant == nil {
			errs = append(errs, errors.New("index.qdrant section missing"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown index %q", c.Index.Type))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.Build.Workers < 0 {
		errs = append(errs, fmt.Errorf("build.workers must not be negative, got %d", c.Build.Workers))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel parses Level as a slog level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", l.Level)
	}
	return lvl, nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "flirtbot", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Corpus:   CorpusConfig{Path: "attractive_pickup_lines_dataset.csv"},
		Embedder: EmbedderConfig{Type: "hashing"},
		Index:    IndexConfig{Type: "flat"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Corpus.TextColumn == "" {
		cfg.Corpus.TextColumn = "pickup_line"
	}
	if cfg.Corpus.LanguageColumn == "" {
		cfg.Corpus.LanguageColumn = "language"
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Type == "hashing" {
		if cfg.Embedder.Hashing == nil {
			cfg.Embedder.Hashing = &HashingEmbedderConfig{}
		}
		if cfg.Embedder.Hashing.Dimension == 0 {
			cfg.Embedder.Hashing.Dimension = 384
		}
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "http://localhost:11434/v1"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "all-minilm"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
		if cfg.Embedder.OpenAI.MaxRetries == 0 {
			cfg.Embedder.OpenAI.MaxRetries = 3
		}
		if cfg.Embedder.OpenAI.RetryBaseMillis == 0 {
			cfg.Embedder.OpenAI.RetryBaseMillis = 200
		}
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "flat"
	}
	if cfg.Index.Type == "flat" && cfg.Index.Metric == "" {
		cfg.Index.Metric = "l2"
	}
	if cfg.Index.Type == "qdrant" && cfg.Index.Qdrant != nil {
		if cfg.Index.Qdrant.Addr == "" {
			cfg.Index.Qdrant.Addr = "localhost:6334"
		}
		if cfg.Index.Qdrant.Prefix == "" {
			cfg.Index.Qdrant.Prefix = "flirtbot"
		}
		if cfg.Index.Qdrant.BatchSize == 0 {
			cfg.Index.Qdrant.BatchSize = 256
		}
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5000"
	}
	if cfg.Server.ReadTimeoutSecs == 0 {
		cfg.Server.ReadTimeoutSecs = 10
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
