package config

import (
    "fmt"
    "strings"
)

// LogConfig selects level, encoding and sinks for the zap logger.
type LogConfig struct {
    Level       string         `mapstructure:"level"`   // debug | info | warn | error
    Format      string         `mapstructure:"format"`  // console | json
    Outputs     []string       `mapstructure:"outputs"` // stdout, stderr or file paths
    Rotation    RotationConfig `mapstructure:"rotation"`
    Development bool           `mapstructure:"development"`
}

// RotationConfig applies lumberjack rotation to file outputs.
type RotationConfig struct {
    Enable     bool   `mapstructure:"enable"`
    Filename   string `mapstructure:"filename"`
    MaxSizeMB  int    `mapstructure:"max_size_mb"`
    MaxBackups int    `mapstructure:"max_backups"`
    MaxAgeDays int    `mapstructure:"max_age_days"`
    Compress   bool   `mapstructure:"compress"`
}

func (l *LogConfig) validate() error {
    l.Level = strings.ToLower(strings.TrimSpace(l.Level))
    switch l.Level {
    case "debug", "info", "warn", "warning", "error":
    default:
        return fmt.Errorf("invalid log.level: %q", l.Level)
    }
    l.Format = strings.ToLower(strings.TrimSpace(l.Format))
    switch l.Format {
    case "":
        l.Format = "console"
    case "console", "json":
    default:
        return fmt.Errorf("invalid log.format: %q", l.Format)
    }
    if len(l.Outputs) == 0 { l.Outputs = []string{"stdout"} }
    return nil
}
