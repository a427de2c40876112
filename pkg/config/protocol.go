package config

import (
    "fmt"
    "time"
)

// ProtocolConfig carries the timing and capacity parameters handed to the
// core. All values are milliseconds so tests can compress time freely.
type ProtocolConfig struct {
    HeartbeatIntervalMS int `mapstructure:"heartbeat_interval_ms"`
    TimeoutMS           int `mapstructure:"timeout_ms"`
    SweepIntervalMS     int `mapstructure:"sweep_interval_ms"`
    StatusIntervalMS    int `mapstructure:"status_interval_ms"`
    MaxDevices          int `mapstructure:"max_devices"`
}

func (p *ProtocolConfig) validate() error {
    if p.HeartbeatIntervalMS <= 0 {
        return fmt.Errorf("invalid protocol.heartbeat_interval_ms: %d", p.HeartbeatIntervalMS)
    }
    if p.TimeoutMS <= p.HeartbeatIntervalMS {
        return fmt.Errorf("protocol.timeout_ms (%d) must exceed heartbeat_interval_ms (%d)", p.TimeoutMS, p.HeartbeatIntervalMS)
    }
    if p.SweepIntervalMS <= 0 {
        p.SweepIntervalMS = p.HeartbeatIntervalMS
    }
    if p.MaxDevices <= 0 || p.MaxDevices > 4096 {
        return fmt.Errorf("invalid protocol.max_devices: %d", p.MaxDevices)
    }
    return nil
}

func (p ProtocolConfig) HeartbeatInterval() time.Duration { return ms(p.HeartbeatIntervalMS) }
func (p ProtocolConfig) Timeout() time.Duration           { return ms(p.TimeoutMS) }
func (p ProtocolConfig) SweepInterval() time.Duration     { return ms(p.SweepIntervalMS) }
func (p ProtocolConfig) StatusInterval() time.Duration    { return ms(p.StatusIntervalMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
