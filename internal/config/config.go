package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Feed      Feed      `yaml:"feed"`
	Embedding Embedding `yaml:"embedding"`
	Knowledge Knowledge `yaml:"knowledge"`
	Output    Output    `yaml:"output"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
}

type Feed struct {
	APIKeyEnv      string   `yaml:"api_key_env"`
	Section        string   `yaml:"section"`
	Tickers        []string `yaml:"tickers"`
	Items          int      `yaml:"items"`
	ExtractTimeout int      `yaml:"extract_timeout_seconds"`
}

type Embedding struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
}

// Collection holds per-collection retrieval limits.
type Collection struct {
	Count     int     `yaml:"count"`
	Threshold float64 `yaml:"threshold"`
}

type Knowledge struct {
	DrainOrder  []string              `yaml:"drain_order"`
	Collections map[string]Collection `yaml:"collections"`
}

type Output struct {
	DataDir    string `yaml:"data_dir"`
	ManualNews string `yaml:"manual_news"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for brainboost.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "brainboost")
}

// DataDir returns the XDG data directory for brainboost.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "brainboost")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/brainboost/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'brainboost init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Feed: Feed{
			APIKeyEnv:      "CRYPTONEWS_API_KEY",
			Section:        "general",
			Items:          10,
			ExtractTimeout: 15,
		},
		Embedding: Embedding{
			Provider:    "ollama",
			Model:       "nomic-embed-text",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "text-embedding-3-small",
			APIKeyEnv:   "OPENAI_API_KEY",
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.Knowledge.DrainOrder) == 0 {
		cfg.Knowledge.DrainOrder = []string{"transactions", "prices", "news"}
	}
	if cfg.Knowledge.Collections == nil {
		cfg.Knowledge.Collections = map[string]Collection{}
	}
	for _, typ := range []string{"news", "transactions", "prices"} {
		if _, ok := cfg.Knowledge.Collections[typ]; !ok {
			cfg.Knowledge.Collections[typ] = Collection{Count: 10, Threshold: 0.7}
		}
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetManualNewsPath returns the path of the manual news buffer file.
func (c *Config) GetManualNewsPath() string {
	if c.Output.ManualNews != "" {
		return c.Output.ManualNews
	}
	return filepath.Join(c.GetDataDir(), "manual_news.txt")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
