// Package config provides configuration management for the sqleter CLI.
package config

import "time"

// CompactConfig selects the maintenance steps run after a removal.
type CompactConfig struct {
	Full    bool `koanf:"full"`
	Analyze bool `koanf:"analyze"`
	Reindex bool `koanf:"reindex"`
}

// BatchConfig holds settings for the batch command.
type BatchConfig struct {
	Workers int `koanf:"workers"`
}

// Config holds all CLI configuration options.
type Config struct {
	DBType           string               `koanf:"db_type"`
	ConnectionString string               `koanf:"connection_string"`
	Table            string               `koanf:"table"`
	Columns          []string             `koanf:"columns"`
	Strategy         string               `koanf:"strategy"`
	IDColumn         string               `koanf:"id_column"`
	BackupPrefix     string               `koanf:"backup_prefix"`
	StatePath        string               `koanf:"state_path"`
	Timeout          time.Duration        `koanf:"timeout"`
	Environment      string               `koanf:"environment"`
	Verbose          bool                 `koanf:"verbose"`
	OutputFormat     string               `koanf:"output"`
	LogLevel         string               `koanf:"log_level"`
	LogFormat        string               `koanf:"log_format"`
	LogFile          string               `koanf:"log_file"`
	Compact          CompactConfig        `koanf:"compact"`
	Batch            BatchConfig          `koanf:"batch"`
	Environments     map[string]EnvConfig `koanf:"environments"`
}

// EnvConfig holds environment-specific connection overrides.
type EnvConfig struct {
	DBType           string `koanf:"db_type"`
	ConnectionString string `koanf:"connection_string"`
	BackupPrefix     string `koanf:"backup_prefix"`
}

// Default configuration values.
const (
	DefaultStrategy     = "oldest"
	DefaultIDColumn     = "id"
	DefaultBackupPrefix = "backup"
	DefaultStateFile    = ".sqleter/state.db"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultWorkers      = 3
)
