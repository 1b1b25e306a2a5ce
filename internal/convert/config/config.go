package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/anthanhphan/gosdk/conflux"
	"github.com/anthanhphan/gosdk/logger"
)

// Config holds conversion service configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	App       AppConfig       `json:"app" yaml:"app"`
	Limits    LimitsConfig    `json:"limits" yaml:"limits"`
	Retention RetentionConfig `json:"retention" yaml:"retention"`
	Logger    logger.Config   `json:"logger" yaml:"logger"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

type AppConfig struct {
	NodeID           int64  `json:"node_id" yaml:"node_id"`
	UploadDir        string `json:"upload_dir" yaml:"upload_dir"`
	OutputDir        string `json:"output_dir" yaml:"output_dir"`
	TempDir          string `json:"temp_dir" yaml:"temp_dir"`
	ExtractDir       string `json:"extract_dir" yaml:"extract_dir"`
	MaxWorkers       int    `json:"max_workers" yaml:"max_workers"`
	QueueSize        int    `json:"queue_size" yaml:"queue_size"`
	ConvertTimeoutMS int    `json:"convert_timeout_ms" yaml:"convert_timeout_ms"`
}

type LimitsConfig struct {
	MaxUploadBytes    int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	MaxDeliveryBytes  int64 `json:"max_delivery_bytes" yaml:"max_delivery_bytes"`
	MaxArchiveBytes   int64 `json:"max_archive_bytes" yaml:"max_archive_bytes"`
	MaxArchiveEntries int   `json:"max_archive_entries" yaml:"max_archive_entries"`
	MaxListedEntries  int   `json:"max_listed_entries" yaml:"max_listed_entries"`
}

type RetentionConfig struct {
	MaxAgeHours int    `json:"max_age_hours" yaml:"max_age_hours"`
	SweepSpec   string `json:"sweep_spec" yaml:"sweep_spec"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		App: AppConfig{
			NodeID:           1,
			UploadDir:        "uploads",
			OutputDir:        "converted",
			TempDir:          "temp",
			ExtractDir:       "extracted",
			MaxWorkers:       3,
			QueueSize:        6,
			ConvertTimeoutMS: 120000,
		},
		Limits: LimitsConfig{
			MaxUploadBytes:    2 * 1024 * 1024 * 1024, // 2GiB
			MaxDeliveryBytes:  50 * 1024 * 1024,       // 50MB
			MaxArchiveBytes:   100 * 1024 * 1024,      // 100MB declared uncompressed
			MaxArchiveEntries: 10000,
			MaxListedEntries:  10,
		},
		Retention: RetentionConfig{
			MaxAgeHours: 24,
			SweepSpec:   "@every 1h",
		},
		Logger: logger.Config{
			LogLevel:    logger.LevelInfo,
			LogEncoding: logger.EncodingJSON,
		},
	}
}

// Load loads configuration from file, falling back to defaults when no path
// was given and the environment file is absent.
func Load(path string) (*Config, error) {
	configPath := path
	if configPath == "" {
		env := os.Getenv("ENV")
		if env == "" {
			env = "local"
		}
		configPath = filepath.Join("internal", "convert", "config", env+".yaml")
	}

	cfg := DefaultConfig()

	parsedCfg, err := conflux.ParseConfig(configPath, cfg)
	if err != nil {
		log.Printf("Config file not found or failed to parse, using defaults. Path: %s, Error: %v", configPath, err)
		if path != "" {
			return nil, err
		}
		return cfg, nil
	}

	return parsedCfg, nil
}

// MustLoad loads configuration or exits on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}
