package protocol

import (
    "encoding/binary"
)

// Fixed header layout (8 bytes, padding-free) shared by every packet kind.
// All multi-byte integer fields are big-endian.
//
//  0 ..1   Magic      0xED61
//  2       Kind       u8 (1..5)
//  3 ..6   Source     u32
//  7       PayloadLen u8 (bytes following the header)
const (
    HeaderSize = 8
    Magic      = uint16(0xED61)
    Version    = uint8(1)
    MaxPayload = 255
)

// Header describes the common prefix of a packet.
type Header struct {
    Magic      uint16
    Kind       Kind
    Source     uint32
    PayloadLen uint8
}

// EncodeHeader writes a header for kind/source/payloadLen. Inputs are trusted:
// callers are the packet builders in this package.
func EncodeHeader(kind Kind, source uint32, payloadLen uint8) [HeaderSize]byte {
    var out [HeaderSize]byte
    h := Header{Magic: Magic, Kind: kind, Source: source, PayloadLen: payloadLen}
    h.put(out[:])
    return out
}

func (h *Header) put(buf []byte) {
    binary.BigEndian.PutUint16(buf[0:2], h.Magic)
    buf[2] = uint8(h.Kind)
    binary.BigEndian.PutUint32(buf[3:7], h.Source)
    buf[7] = h.PayloadLen
}

// MarshalBinary encodes header to an 8-byte buffer. A zero Magic is written
// as the protocol constant.
func (h *Header) MarshalBinary() ([]byte, error) {
    buf := make([]byte, HeaderSize)
    hh := *h
    if hh.Magic == 0 { hh.Magic = Magic }
    hh.put(buf)
    return buf, nil
}

// UnmarshalBinary decodes and validates a header. Magic and kind are checked
// before anything else is trusted.
func (h *Header) UnmarshalBinary(buf []byte) error {
    if len(buf) < HeaderSize {
        return ErrTruncatedPacket
    }
    magic := binary.BigEndian.Uint16(buf[0:2])
    if magic != Magic {
        return ErrInvalidMagic
    }
    kind := Kind(buf[2])
    if !kind.Valid() {
        return ErrInvalidKind
    }
    h.Magic = magic
    h.Kind = kind
    h.Source = binary.BigEndian.Uint32(buf[3:7])
    h.PayloadLen = buf[7]
    return nil
}

// DecodeHeader parses the first HeaderSize bytes of buf. It must succeed
// before any payload decoder is called.
func DecodeHeader(buf []byte) (Header, error) {
    var h Header
    if err := h.UnmarshalBinary(buf); err != nil {
        return Header{}, err
    }
    return h, nil
}
