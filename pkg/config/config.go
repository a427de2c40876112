// Package config loads edtsp node settings from YAML and EDTSP_* environment
// variables through viper.
package config

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "github.com/spf13/viper"

    "edtsp/pkg/protocol"
)

// Config is the root node configuration.
type Config struct {
    AppName    string `mapstructure:"app_name"`
    DeviceName string `mapstructure:"device_name"` // announced in Discovery; hostname when empty
    Interface  string `mapstructure:"interface"`   // ethernet | wifi | 5g
    DataDir    string `mapstructure:"data_dir"`    // base for relative identity.id_file

    Log      LogConfig      `mapstructure:"log"`
    Identity IdentityConfig `mapstructure:"identity"`
    Net      NetConfig      `mapstructure:"net"`
    Protocol ProtocolConfig `mapstructure:"protocol"`
    Metrics  MetricsConfig  `mapstructure:"metrics"`
    Status   StatusConfig   `mapstructure:"status"`
}

// MetricsConfig describes the HTTP endpoint serving /metrics and /status.
// An empty Listen disables it.
type MetricsConfig struct {
    Listen string `mapstructure:"listen"`
}

// StatusConfig selects the encoding of status snapshots: json, cbor or proto.
type StatusConfig struct {
    Format string `mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
    return &Config{
        AppName:   "edtsp-node",
        Interface: "ethernet",
        DataDir:   "./data",
        Log: LogConfig{
            Level:       "info",
            Format:      "console",
            Outputs:     []string{"stdout"},
            Development: true,
            Rotation: RotationConfig{
                Filename:   "logs/edtsp.log",
                MaxSizeMB:  50,
                MaxBackups: 3,
                MaxAgeDays: 28,
                Compress:   true,
            },
        },
        Identity: IdentityConfig{IDFile: "edtsp_device_id"},
        Net: NetConfig{
            Group:     DefaultGroup,
            TTL:       1,
            Loopback:  true,
            QueueSize: 256,
        },
        Protocol: ProtocolConfig{
            HeartbeatIntervalMS: 1000,
            TimeoutMS:           5000,
            SweepIntervalMS:     1000,
            StatusIntervalMS:    5000,
            MaxDevices:          256,
        },
        Status: StatusConfig{Format: "json"},
    }
}

// defaults lists every key with its built-in value. viper only consults the
// environment for keys it knows about, so env-only setups need all of them.
func (c *Config) defaults() map[string]any {
    return map[string]any{
        "app_name":                       c.AppName,
        "device_name":                    c.DeviceName,
        "interface":                      c.Interface,
        "data_dir":                       c.DataDir,
        "log.level":                      c.Log.Level,
        "log.format":                     c.Log.Format,
        "log.outputs":                    c.Log.Outputs,
        "log.development":                c.Log.Development,
        "log.rotation.enable":            c.Log.Rotation.Enable,
        "log.rotation.filename":          c.Log.Rotation.Filename,
        "log.rotation.max_size_mb":       c.Log.Rotation.MaxSizeMB,
        "log.rotation.max_backups":       c.Log.Rotation.MaxBackups,
        "log.rotation.max_age_days":      c.Log.Rotation.MaxAgeDays,
        "log.rotation.compress":          c.Log.Rotation.Compress,
        "identity.device_id":             c.Identity.DeviceID,
        "identity.id_file":               c.Identity.IDFile,
        "net.group":                      c.Net.Group,
        "net.interface":                  c.Net.Interface,
        "net.ttl":                        c.Net.TTL,
        "net.loopback":                   c.Net.Loopback,
        "net.queue_size":                 c.Net.QueueSize,
        "protocol.heartbeat_interval_ms": c.Protocol.HeartbeatIntervalMS,
        "protocol.timeout_ms":            c.Protocol.TimeoutMS,
        "protocol.sweep_interval_ms":     c.Protocol.SweepIntervalMS,
        "protocol.status_interval_ms":    c.Protocol.StatusIntervalMS,
        "protocol.max_devices":           c.Protocol.MaxDevices,
        "metrics.listen":                 c.Metrics.Listen,
        "status.format":                  c.Status.Format,
    }
}

// Load reads the file at path, or EDTSP_CONFIG, or the first edtsp.yaml found
// in ., ./configs and ~/.edtsp. A missing file is not an error. Environment
// variables override file values: EDTSP_PROTOCOL_TIMEOUT_MS=2000.
func Load(path string) (*Config, error) {
    cfg := Default()

    v := viper.New()
    v.SetConfigType("yaml")
    v.SetEnvPrefix("EDTSP")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
    v.AutomaticEnv()
    for k, val := range cfg.defaults() {
        v.SetDefault(k, val)
    }

    if path == "" { path = os.Getenv("EDTSP_CONFIG") }
    if path != "" {
        v.SetConfigFile(path)
    } else {
        v.SetConfigName("edtsp")
        v.AddConfigPath(".")
        v.AddConfigPath("./configs")
        if home, err := os.UserHomeDir(); err == nil {
            v.AddConfigPath(filepath.Join(home, ".edtsp"))
        }
    }

    if err := v.ReadInConfig(); err != nil {
        var notFound viper.ConfigFileNotFoundError
        if !errors.As(err, &notFound) {
            return nil, fmt.Errorf("read config: %w", err)
        }
    }
    if err := v.Unmarshal(cfg); err != nil {
        return nil, fmt.Errorf("decode config: %w", err)
    }
    if err := cfg.validate(); err != nil {
        return nil, err
    }
    return cfg, nil
}

// validate normalizes values in place and rejects the unusable ones.
func (c *Config) validate() error {
    if err := c.Log.validate(); err != nil { return err }
    if strings.TrimSpace(c.DeviceName) == "" {
        c.DeviceName = c.AppName
        if h, err := os.Hostname(); err == nil { c.DeviceName = h }
    }
    c.Interface = strings.ToLower(strings.TrimSpace(c.Interface))
    if _, err := protocol.ParseInterfaceKind(c.Interface); err != nil {
        return fmt.Errorf("invalid interface: %w", err)
    }
    if err := c.Net.validate(); err != nil { return err }
    if err := c.Protocol.validate(); err != nil { return err }
    switch strings.ToLower(strings.TrimSpace(c.Status.Format)) {
    case "", "json", "cbor", "proto":
    default:
        return fmt.Errorf("invalid status.format: %q", c.Status.Format)
    }
    return nil
}

// IDFilePath resolves the identity file against DataDir when relative.
func (c *Config) IDFilePath() string {
    p := c.Identity.IDFile
    if p == "" || filepath.IsAbs(p) || c.DataDir == "" {
        return p
    }
    return filepath.Join(c.DataDir, p)
}
