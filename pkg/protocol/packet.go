package protocol

import (
    "bytes"
    "encoding/binary"
)

// Body layouts following the 8-byte header (offsets relative to packet start).
//
//  Discovery  8 iface u8 | 9 version u8 | 10..41 name [32]byte (NUL padded)
//  Heartbeat  8 role u8 | 9..12 uptime_ms u32 | 13 active_devices u8
//  Handshake  8 step u8 | 9..12 target u32 | 13..14 caps u16 | 15 iface u8
//  Config     8..11 target u32 | 12 sensor u8 | 13..14 rate_ms u16 | 15 enable u8
//  Data       8 sensor u8 | 9..12 ts_ms u32 | 13 data_len u8 | 14..77 data [64]byte
const (
    nameFieldLen = 32
    MaxNameLen   = nameFieldLen - 1
    MaxDataLen   = 64

    DiscoverySize = HeaderSize + 2 + nameFieldLen
    HeartbeatSize = HeaderSize + 6
    HandshakeSize = HeaderSize + 8
    ConfigSize    = HeaderSize + 8
    DataSize      = HeaderSize + 6 + MaxDataLen
)

// SizeOf returns the full on-wire size of a packet of kind k, or 0.
func SizeOf(k Kind) int {
    switch k {
    case KindDiscovery:
        return DiscoverySize
    case KindHeartbeat:
        return HeartbeatSize
    case KindHandshake:
        return HandshakeSize
    case KindConfig:
        return ConfigSize
    case KindData:
        return DataSize
    default:
        return 0
    }
}

// Packet is one decoded datagram. The concrete type is one of *Discovery,
// *Heartbeat, *Handshake, *Config or *Data; switch on it exhaustively.
type Packet interface {
    Kind() Kind
    Source() uint32
    Marshal() ([]byte, error)
    header() Header
}

// HeaderOf returns the decoded header a packet arrived with.
func HeaderOf(p Packet) Header { return p.header() }

// Discovery announces a device and its link.
type Discovery struct {
    Header    Header
    Interface InterfaceKind
    Version   uint8
    Name      string
}

// Heartbeat is the periodic liveness signal carrying the sender's role.
type Heartbeat struct {
    Header        Header
    Role          Role
    UptimeMS      uint32
    ActiveDevices uint8
}

// Handshake is carried on the wire but not processed by the election core.
type Handshake struct {
    Header       Header
    Step         HandshakeStep
    Target       uint32
    Capabilities CapabilityMask
    Interface    InterfaceKind
}

// Config is a master-to-slave sampling instruction; payload semantics are
// left to the application.
type Config struct {
    Header         Header
    Target         uint32
    SensorID       uint8
    SamplingRateMS uint16
    Enable         bool
}

// Data carries a raw sensor reading of at most MaxDataLen bytes.
type Data struct {
    Header      Header
    SensorID    uint8
    TimestampMS uint32
    Payload     []byte
}

func (p *Discovery) Kind() Kind { return KindDiscovery }
func (p *Heartbeat) Kind() Kind { return KindHeartbeat }
func (p *Handshake) Kind() Kind { return KindHandshake }
func (p *Config) Kind() Kind    { return KindConfig }
func (p *Data) Kind() Kind      { return KindData }

func (p *Discovery) Source() uint32 { return p.Header.Source }
func (p *Heartbeat) Source() uint32 { return p.Header.Source }
func (p *Handshake) Source() uint32 { return p.Header.Source }
func (p *Config) Source() uint32    { return p.Header.Source }
func (p *Data) Source() uint32      { return p.Header.Source }

func (p *Discovery) header() Header { return p.Header }
func (p *Heartbeat) header() Header { return p.Header }
func (p *Handshake) header() Header { return p.Header }
func (p *Config) header() Header    { return p.Header }
func (p *Data) header() Header      { return p.Header }

// Marshal encodes p with its own Version; zero means the current Version.
func (p *Discovery) Marshal() ([]byte, error) {
    buf := EncodeDiscovery(p.Header.Source, p.Interface, p.Name)
    if p.Version != 0 { buf[9] = p.Version }
    return buf, nil
}

func (p *Heartbeat) Marshal() ([]byte, error) {
    return EncodeHeartbeat(p.Header.Source, p.Role, p.UptimeMS, p.ActiveDevices), nil
}

func (p *Handshake) Marshal() ([]byte, error) {
    return EncodeHandshake(p.Header.Source, p.Step, p.Target, p.Capabilities, p.Interface), nil
}

func (p *Config) Marshal() ([]byte, error) {
    return EncodeConfig(p.Header.Source, p.Target, p.SensorID, p.SamplingRateMS, p.Enable), nil
}

func (p *Data) Marshal() ([]byte, error) {
    return EncodeData(p.Header.Source, p.SensorID, p.TimestampMS, p.Payload)
}

// newPacket returns a zero-filled buffer of the kind's size with the header written.
func newPacket(kind Kind, source uint32) []byte {
    size := SizeOf(kind)
    buf := make([]byte, size)
    h := EncodeHeader(kind, source, uint8(size-HeaderSize))
    copy(buf, h[:])
    return buf
}

// ---------- builders ----------

// EncodeDiscovery builds a Discovery packet. Names longer than MaxNameLen bytes
// are truncated; the field is always NUL terminated.
func EncodeDiscovery(source uint32, iface InterfaceKind, name string) []byte {
    buf := newPacket(KindDiscovery, source)
    buf[8] = uint8(iface)
    buf[9] = Version
    if len(name) > MaxNameLen { name = name[:MaxNameLen] }
    copy(buf[10:10+nameFieldLen], name)
    return buf
}

func EncodeHeartbeat(source uint32, role Role, uptimeMS uint32, activeDevices uint8) []byte {
    buf := newPacket(KindHeartbeat, source)
    buf[8] = uint8(role)
    binary.BigEndian.PutUint32(buf[9:13], uptimeMS)
    buf[13] = activeDevices
    return buf
}

func EncodeHandshake(source uint32, step HandshakeStep, target uint32, caps CapabilityMask, iface InterfaceKind) []byte {
    buf := newPacket(KindHandshake, source)
    buf[8] = uint8(step)
    binary.BigEndian.PutUint32(buf[9:13], target)
    binary.BigEndian.PutUint16(buf[13:15], uint16(caps))
    buf[15] = uint8(iface)
    return buf
}

func EncodeConfig(source, target uint32, sensorID uint8, samplingRateMS uint16, enable bool) []byte {
    buf := newPacket(KindConfig, source)
    binary.BigEndian.PutUint32(buf[8:12], target)
    buf[12] = sensorID
    binary.BigEndian.PutUint16(buf[13:15], samplingRateMS)
    if enable { buf[15] = 1 }
    return buf
}

// EncodeData builds a Data packet; data longer than MaxDataLen is rejected.
func EncodeData(source uint32, sensorID uint8, timestampMS uint32, data []byte) ([]byte, error) {
    if len(data) > MaxDataLen {
        return nil, ErrPayloadTooLarge
    }
    buf := newPacket(KindData, source)
    buf[8] = sensorID
    binary.BigEndian.PutUint32(buf[9:13], timestampMS)
    buf[13] = uint8(len(data))
    copy(buf[14:14+MaxDataLen], data)
    return buf, nil
}

// ---------- decoders ----------
// Each decoder expects h to come from DecodeHeader on the same buffer.

func DecodeDiscovery(buf []byte, h Header) (*Discovery, error) {
    if len(buf) < DiscoverySize { return nil, ErrTruncatedPacket }
    name := buf[10 : 10+nameFieldLen]
    if i := bytes.IndexByte(name, 0); i >= 0 { name = name[:i] }
    return &Discovery{
        Header:    h,
        Interface: InterfaceKind(buf[8]),
        Version:   buf[9],
        Name:      string(name),
    }, nil
}

func DecodeHeartbeat(buf []byte, h Header) (*Heartbeat, error) {
    if len(buf) < HeartbeatSize { return nil, ErrTruncatedPacket }
    return &Heartbeat{
        Header:        h,
        Role:          Role(buf[8]),
        UptimeMS:      binary.BigEndian.Uint32(buf[9:13]),
        ActiveDevices: buf[13],
    }, nil
}

func DecodeHandshake(buf []byte, h Header) (*Handshake, error) {
    if len(buf) < HandshakeSize { return nil, ErrTruncatedPacket }
    return &Handshake{
        Header:       h,
        Step:         HandshakeStep(buf[8]),
        Target:       binary.BigEndian.Uint32(buf[9:13]),
        Capabilities: CapabilityMask(binary.BigEndian.Uint16(buf[13:15])),
        Interface:    InterfaceKind(buf[15]),
    }, nil
}

func DecodeConfig(buf []byte, h Header) (*Config, error) {
    if len(buf) < ConfigSize { return nil, ErrTruncatedPacket }
    return &Config{
        Header:         h,
        Target:         binary.BigEndian.Uint32(buf[8:12]),
        SensorID:       buf[12],
        SamplingRateMS: binary.BigEndian.Uint16(buf[13:15]),
        Enable:         buf[15] != 0,
    }, nil
}

func DecodeData(buf []byte, h Header) (*Data, error) {
    if len(buf) < DataSize { return nil, ErrTruncatedPacket }
    n := int(buf[13])
    if n > MaxDataLen { return nil, ErrPayloadTooLarge }
    return &Data{
        Header:      h,
        SensorID:    buf[8],
        TimestampMS: binary.BigEndian.Uint32(buf[9:13]),
        Payload:     append([]byte(nil), buf[14:14+n]...),
    }, nil
}
