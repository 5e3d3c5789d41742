// Package config loads transdeckd's configuration, adapted from the
// teacher's viper-based Config/Default/Load/Save shape
// (lsilvatti-bakasub/internal/config/config.go) but reshaped for a
// long-running server instead of a TUI: AI provider settings survive nearly
// unchanged, while subtitle-specific automation (TouchlessRules, the
// anime/movie/series prompt-profile catalog) is dropped since nothing in
// this service's domain exercises it (see DESIGN.md). viper.WatchConfig
// (backed by fsnotify, the same dependency the teacher used for its
// subtitle-file watcher) adds hot-reload, which the teacher's TUI never
// needed since it only ever read config once at startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// StorageConfig controls where uploaded and translated files live on disk.
type StorageConfig struct {
	TempDir   string `json:"temp_dir" mapstructure:"temp_dir"`
	OutputDir string `json:"output_dir" mapstructure:"output_dir"`
}

// AIConfig selects and configures the LLM provider every translation job
// uses, carried over field-for-field from the teacher's Config.
type AIConfig struct {
	Provider      string  `json:"provider" mapstructure:"provider"`
	APIKey        string  `json:"api_key" mapstructure:"api_key"`
	LocalEndpoint string  `json:"local_endpoint" mapstructure:"local_endpoint"`
	Model         string  `json:"model" mapstructure:"model"`
	Temperature   float64 `json:"temperature" mapstructure:"temperature"`
}

// DropFolderConfig configures the optional filesystem ingestion path
// (SPEC_FULL.md §4.7a): files appearing under Path are submitted as jobs
// automatically using the default language pair.
type DropFolderConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Path       string `json:"path" mapstructure:"path"`
	SourceLang string `json:"source_lang" mapstructure:"source_lang"`
	TargetLang string `json:"target_lang" mapstructure:"target_lang"`
}

// RetentionConfig configures the staleness sweeper and retention archivist
// (SPEC_FULL.md §4.8a).
type RetentionConfig struct {
	StaleAfter  time.Duration `json:"stale_after" mapstructure:"stale_after"`
	ArchiveAge  time.Duration `json:"archive_age" mapstructure:"archive_age"`
	ArchiveDir  string        `json:"archive_dir" mapstructure:"archive_dir"`
	SweepPeriod time.Duration `json:"sweep_period" mapstructure:"sweep_period"`
}

// Config is transdeckd's top-level configuration.
type Config struct {
	Server ServerConfig `json:"server" mapstructure:"server"`
	Storage StorageConfig `json:"storage" mapstructure:"storage"`
	AI     AIConfig     `json:"ai" mapstructure:"ai"`

	StatusCacheDBPath string `json:"status_cache_db_path" mapstructure:"status_cache_db_path"`
	HistoryDBPath     string `json:"history_db_path" mapstructure:"history_db_path"`

	DropFolder DropFolderConfig `json:"drop_folder" mapstructure:"drop_folder"`
	Retention  RetentionConfig  `json:"retention" mapstructure:"retention"`

	LogLevel string `json:"log_level" mapstructure:"log_level"` // debug, info, warn, error
}

var configPath = "transdeck.json"

// Default returns a Config with sensible defaults for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Storage: StorageConfig{
			TempDir:   "./data/uploads",
			OutputDir: "./data/output",
		},
		AI: AIConfig{
			Provider:      "openrouter",
			LocalEndpoint: "http://localhost:11434",
			Model:         "google/gemini-flash-1.5",
			Temperature:   0.3,
		},
		StatusCacheDBPath: "./data/status_cache.db",
		HistoryDBPath:     "./data/history.db",
		DropFolder: DropFolderConfig{
			Enabled: false,
			Path:    "./data/dropfolder",
		},
		Retention: RetentionConfig{
			StaleAfter:  2 * time.Hour,
			ArchiveAge:  7 * 24 * time.Hour,
			ArchiveDir:  "./data/archive",
			SweepPeriod: 10 * time.Minute,
		},
		LogLevel: "info",
	}
}

// Exists reports whether a config file is present at configPath.
func Exists() bool {
	_, err := os.Stat(configPath)
	return err == nil
}

// Load reads JSON configuration from transdeck.json in the working directory
// or $HOME/.config/transdeck (the file is always parsed as JSON), falling back to
// Default when no file is found.
func Load() (*Config, error) {
	viper.SetConfigName("transdeck")
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/transdeck")

	cfg := Default()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read: %w", err)
	}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// Watch installs a live-reload hook: whenever the config file on disk
// changes, it is re-unmarshaled and onChange is invoked with the new value.
// onChange errors are not fatal to the watch; callers decide how to react
// (typically logging and keeping the previous config in effect).
func Watch(onChange func(*Config, error)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg := Default()
		if err := viper.Unmarshal(cfg); err != nil {
			onChange(nil, fmt.Errorf("config: reload after %s: %w", e.Name, err))
			return
		}
		onChange(cfg, nil)
	})
	viper.WatchConfig()
}

// Save writes the configuration back to configPath as JSON.
func (c *Config) Save() error {
	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("config: create directory: %w", err)
		}
	}

	viper.Set("server", c.Server)
	viper.Set("storage", c.Storage)
	viper.Set("ai", c.AI)
	viper.Set("status_cache_db_path", c.StatusCacheDBPath)
	viper.Set("history_db_path", c.HistoryDBPath)
	viper.Set("drop_folder", c.DropFolder)
	viper.Set("retention", c.Retention)
	viper.Set("log_level", c.LogLevel)

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}
