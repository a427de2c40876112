package protocol

import (
    "fmt"
    "strings"
)

// Kind is the packet type tag carried in the header.
type Kind uint8

const (
    KindDiscovery Kind = iota + 1 // device announcement
    KindHeartbeat                 // liveness + role
    KindHandshake                 // 3-way handshake + capability report
    KindConfig                    // master -> slave sampling config
    KindData                      // sensor data
)

// Valid reports whether k is one of the five defined kinds.
func (k Kind) Valid() bool { return k >= KindDiscovery && k <= KindData }

func (k Kind) String() string {
    switch k {
    case KindDiscovery:
        return "DISCOVERY"
    case KindHeartbeat:
        return "HEARTBEAT"
    case KindHandshake:
        return "HANDSHAKE"
    case KindConfig:
        return "CONFIG"
    case KindData:
        return "DATA"
    default:
        return "UNKNOWN"
    }
}

// Role is the announced election role of a device.
type Role uint8

const (
    RoleUnknown Role = iota
    RoleSlave
    RoleMaster
)

func (r Role) String() string {
    switch r {
    case RoleMaster:
        return "MASTER"
    case RoleSlave:
        return "SLAVE"
    case RoleUnknown:
        return "UNKNOWN"
    default:
        return "INVALID"
    }
}

// InterfaceKind is the physical link a device announces.
type InterfaceKind uint8

const (
    InterfaceUnknown InterfaceKind = iota
    InterfaceEthernet
    InterfaceWiFi
    Interface5G
)

// Priority returns the link preference (lower is better). Only external link
// selection uses it; election ignores interfaces entirely.
func (i InterfaceKind) Priority() uint8 {
    switch i {
    case InterfaceEthernet:
        return 1
    case InterfaceWiFi:
        return 2
    case Interface5G:
        return 3
    default:
        return 99
    }
}

func (i InterfaceKind) String() string {
    switch i {
    case InterfaceEthernet:
        return "ETHERNET"
    case InterfaceWiFi:
        return "WIFI"
    case Interface5G:
        return "5G"
    default:
        return "UNKNOWN"
    }
}

// ParseInterfaceKind maps a config string to an InterfaceKind.
func ParseInterfaceKind(s string) (InterfaceKind, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "eth", "ethernet":
        return InterfaceEthernet, nil
    case "wifi", "wi-fi", "wlan":
        return InterfaceWiFi, nil
    case "5g", "cellular":
        return Interface5G, nil
    case "", "unknown":
        return InterfaceUnknown, nil
    default:
        return InterfaceUnknown, fmt.Errorf("unknown interface kind: %q", s)
    }
}

// HandshakeStep is the phase of the (unprocessed) three-way handshake.
type HandshakeStep uint8

const (
    HandshakeSyn    HandshakeStep = 1
    HandshakeSynAck HandshakeStep = 2
    HandshakeAck    HandshakeStep = 3
)

// Capability bits advertised in a Handshake capability mask.
const (
    CapTemperature CapabilityMask = 1 << iota
    CapHumidity
    CapPressure
    CapDistance
    CapLight
    CapMotion
    CapGPS
    CapAccelerometer
    CapGyroscope
    CapMagnetometer
    CapCurrent
    CapVoltage
    CapGas
    CapSmoke
    CapRelay
    CapPWM
)

// CapabilityMask is a 16-bit set of sensors/features, one bit each.
type CapabilityMask uint16

var capNames = [16]string{
    "temperature", "humidity", "pressure", "distance",
    "light", "motion", "gps", "accelerometer",
    "gyroscope", "magnetometer", "current", "voltage",
    "gas", "smoke", "relay", "pwm",
}

// Has reports whether every bit of c is set in m.
func (m CapabilityMask) Has(c CapabilityMask) bool { return m&c == c }

// Names lists the set capabilities in bit order.
func (m CapabilityMask) Names() []string {
    var out []string
    for i := 0; i < 16; i++ {
        if m&(1<<i) != 0 { out = append(out, capNames[i]) }
    }
    return out
}

func (m CapabilityMask) String() string {
    if m == 0 { return "none" }
    return strings.Join(m.Names(), "|")
}

// FormatID renders a device id the way logs and status dumps show it.
func FormatID(id uint32) string { return fmt.Sprintf("0x%08X", id) }
