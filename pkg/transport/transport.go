package transport

import (
    "context"
    "errors"
)

// Kind identifies the transport type for logging and metrics labels.
type Kind int

const (
    KindUnknown Kind = iota
    KindUDP
    KindMem
)

func (k Kind) String() string {
    switch k {
    case KindUDP:
        return "udp"
    case KindMem:
        return "mem"
    default:
        return "unknown"
    }
}

// ErrClosed is returned by Send and Recv after Close.
var ErrClosed = errors.New("transport: closed")

// DefaultQueueSize bounds the per-endpoint receive queue.
const DefaultQueueSize = 64

// MaxDatagram is the read buffer size for a single frame.
const MaxDatagram = 2048

// Packet is one received datagram.
type Packet struct {
    Data []byte
    From string // transport-dependent sender address
}

// Datagram is a broadcast datagram endpoint. Send and Recv may be called from
// different goroutines; Recv expects a single consumer.
type Datagram interface {
    Kind() Kind
    // Send broadcasts one frame to the group.
    Send(ctx context.Context, b []byte) error
    // Recv blocks until a frame arrives, ctx is done, or the endpoint closes.
    Recv(ctx context.Context) (Packet, error)
    // Dropped reports frames discarded because the receive queue was full.
    Dropped() uint64
    Close() error
}
