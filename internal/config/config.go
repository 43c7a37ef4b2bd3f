package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OpenAIConfig holds configuration for the OpenAI-compatible provider.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	ChatModel   string `yaml:"chat_model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string        `yaml:"type"`
	Concurrency int           `yaml:"concurrency"`
	OpenAI      *OpenAIConfig `yaml:"openai,omitempty"`
}

// CacheConfig bounds the in-memory folder embedding cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
	TTLSecs    int `yaml:"ttl_secs"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
}

// ProfileConfig locates the persisted user profile.
type ProfileConfig struct {
	Path string `yaml:"path"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Library  string         `yaml:"library"`
	Server   ServerConfig   `yaml:"server"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Cache    CacheConfig    `yaml:"cache"`
	Profile  ProfileConfig  `yaml:"profile"`
	LogLevel string         `yaml:"log_level"`
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
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/verbum/config.yaml.
// If neither exists, it writes defaults to ~/.config/verbum/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
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

// DefaultProfilePath is where the user profile lives unless overridden.
func DefaultProfilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".verbum", "profile.json"), nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "verbum", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Library:  "InputDocs",
		Server:   ServerConfig{Host: "127.0.0.1", Port: 5000, Mode: "debug"},
		Embedder: EmbedderConfig{Type: "openai"},
		LogLevel: "info",
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Library == "" {
		cfg.Library = "InputDocs"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Embedder.Concurrency <= 0 {
		cfg.Embedder.Concurrency = 4
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = 512
	}
	if cfg.Cache.TTLSecs <= 0 {
		cfg.Cache.TTLSecs = 3600
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIConfig{}
		}
		oa := cfg.Embedder.OpenAI
		if oa.BaseURL == "" {
			oa.BaseURL = "https://api.openai.com/v1"
		}
		if oa.APIKeyEnv == "" {
			oa.APIKeyEnv = "OPENAI_API_KEY"
		}
		if oa.Model == "" {
			oa.Model = "text-embedding-ada-002"
		}
		if oa.ChatModel == "" {
			oa.ChatModel = "gpt-4"
		}
		if oa.TimeoutSecs == 0 {
			oa.TimeoutSecs = 30
		}
		if oa.MaxRetries == 0 {
			oa.MaxRetries = 3
		}
	}
}
