package protocol

import "errors"

var (
    ErrInvalidMagic    = errors.New("protocol: invalid magic")
    ErrInvalidKind     = errors.New("protocol: invalid packet kind")
    ErrTruncatedPacket = errors.New("protocol: truncated packet")
    ErrPayloadTooLarge = errors.New("protocol: data payload too large")
    // ErrLengthMismatch means a valid header announced a payload length that
    // does not match its kind. Debug builds panic instead (see assert_debug.go).
    ErrLengthMismatch = errors.New("protocol: payload length mismatch")
)

// DropReason maps a decode error to a short label for counters and logs.
func DropReason(err error) string {
    switch {
    case errors.Is(err, ErrInvalidMagic):
        return "invalid_magic"
    case errors.Is(err, ErrInvalidKind):
        return "invalid_kind"
    case errors.Is(err, ErrTruncatedPacket):
        return "truncated"
    case errors.Is(err, ErrPayloadTooLarge):
        return "payload_too_large"
    case errors.Is(err, ErrLengthMismatch):
        return "length_mismatch"
    default:
        return "other"
    }
}
