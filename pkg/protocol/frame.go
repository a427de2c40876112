package protocol

import "fmt"

// Decode parses a whole datagram: the header is validated first, then the
// body is decoded according to its kind.
func Decode(buf []byte) (Packet, error) {
    h, err := DecodeHeader(buf)
    if err != nil {
        return nil, err
    }
    size := SizeOf(h.Kind)
    if len(buf) < size {
        return nil, ErrTruncatedPacket
    }
    if int(h.PayloadLen) != size-HeaderSize {
        assertf("%s from %s: payload_len=%d want %d", h.Kind, FormatID(h.Source), h.PayloadLen, size-HeaderSize)
        return nil, fmt.Errorf("%w: %s payload_len=%d", ErrLengthMismatch, h.Kind, h.PayloadLen)
    }
    switch h.Kind {
    case KindDiscovery:
        return DecodeDiscovery(buf, h)
    case KindHeartbeat:
        return DecodeHeartbeat(buf, h)
    case KindHandshake:
        return DecodeHandshake(buf, h)
    case KindConfig:
        return DecodeConfig(buf, h)
    case KindData:
        return DecodeData(buf, h)
    default:
        // unreachable: DecodeHeader rejects unknown kinds
        return nil, ErrInvalidKind
    }
}
