package config

import (
    "fmt"
    "net"
)

// DefaultGroup is the multicast group and port every device joins.
const DefaultGroup = "239.255.0.1:5000"

// NetConfig contains multicast transport options.
type NetConfig struct {
    Group     string `mapstructure:"group"`      // multicast ip:port
    Interface string `mapstructure:"interface"`  // NIC name; empty = system default
    TTL       int    `mapstructure:"ttl"`        // multicast hop limit
    Loopback  bool   `mapstructure:"loopback"`   // deliver own datagrams locally (several nodes per host)
    QueueSize int    `mapstructure:"queue_size"` // inbound datagrams buffered before drop
}

func (n *NetConfig) validate() error {
    if n.Group == "" {
        n.Group = DefaultGroup
    }
    host, _, err := net.SplitHostPort(n.Group)
    if err != nil {
        return fmt.Errorf("invalid net.group %q: %w", n.Group, err)
    }
    if ip := net.ParseIP(host); ip == nil || !ip.IsMulticast() {
        return fmt.Errorf("invalid net.group %q: not a multicast address", n.Group)
    }
    if n.TTL <= 0 {
        n.TTL = 1
    }
    if n.QueueSize <= 0 {
        n.QueueSize = 256
    }
    return nil
}
