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
	Sources    Sources    `yaml:"sources"`
	Crawl      Crawl      `yaml:"crawl"`
	Enrichment Enrichment `yaml:"enrichment"`
	Server     Server     `yaml:"server"`
	Scheduler  Scheduler  `yaml:"scheduler"`
	Output     Output     `yaml:"output"`
	Logging    Logging    `yaml:"logging"`
}

type Sources struct {
	Feeds []Feed    `yaml:"feeds"`
	API   APIConfig `yaml:"api"`
}

// Feed is one RSS/Atom feed. Every feed maps to exactly one category.
type Feed struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
}

// APIConfig describes the paginated article API, one endpoint per category.
type APIConfig struct {
	Enabled    bool              `yaml:"enabled"`
	Categories map[string]string `yaml:"categories"`
	PageSize   int               `yaml:"page_size"`
	APIKeyEnv  string            `yaml:"api_key_env"`
}

type Crawl struct {
	Concurrency    int  `yaml:"concurrency"`
	MaxPages       int  `yaml:"max_pages"`
	FetchContent   bool `yaml:"fetch_content"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
}

type Enrichment struct {
	Enabled          bool   `yaml:"enabled"`
	SummarizerURL    string `yaml:"summarizer_url"`
	AnalyzerURL      string `yaml:"analyzer_url"`
	MinBodyChars     int    `yaml:"min_body_chars"`
	SummaryMaxLength int    `yaml:"summary_max_length"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Scheduler struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for newswire.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newswire")
}

// DataDir returns the XDG data directory for newswire.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newswire")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newswire/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'newswire init' to create a default config",
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
		Sources: Sources{
			API: APIConfig{
				PageSize:  50,
				APIKeyEnv: "NEWS_API_KEY",
			},
		},
		Crawl: Crawl{
			Concurrency:    4,
			MaxPages:       3,
			FetchContent:   true,
			TimeoutSeconds: 30,
		},
		Enrichment: Enrichment{
			Enabled:          true,
			SummarizerURL:    "http://localhost:8001",
			AnalyzerURL:      "http://localhost:8002",
			MinBodyChars:     250,
			SummaryMaxLength: 300,
			TimeoutSeconds:   30,
		},
		Server:    Server{Port: 8080},
		Scheduler: Scheduler{Cron: "0 */6 * * *"},
		Logging:   Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Crawl.Concurrency < 1 {
		cfg.Crawl.Concurrency = 1
	}
	if cfg.Sources.API.PageSize < 1 {
		cfg.Sources.API.PageSize = 50
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

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
