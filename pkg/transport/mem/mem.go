// Package mem implements an in-process broadcast bus. Every endpoint attached
// to a Bus receives each frame sent by any endpoint, including its own, which
// mirrors multicast loopback.
package mem

import (
    "context"
    "fmt"
    "sync"
    "sync/atomic"

    "edtsp/pkg/transport"
)

// Bus is a shared broadcast medium.
type Bus struct {
    mu   sync.RWMutex
    eps  map[*Endpoint]struct{}
    seq  int
    loss func(from, to string) bool
}

func NewBus() *Bus { return &Bus{eps: make(map[*Endpoint]struct{})} }

// SetLoss installs a filter; returning true drops the frame for that receiver.
// Useful to simulate partitions.
func (b *Bus) SetLoss(f func(from, to string) bool) {
    b.mu.Lock(); b.loss = f; b.mu.Unlock()
}

// Attach creates a new endpoint on the bus. queue <= 0 uses the default size.
func (b *Bus) Attach(queue int) *Endpoint {
    if queue <= 0 { queue = transport.DefaultQueueSize }
    b.mu.Lock(); defer b.mu.Unlock()
    b.seq++
    ep := &Endpoint{
        bus:     b,
        addr:    fmt.Sprintf("mem:%d", b.seq),
        rxCh:    make(chan transport.Packet, queue),
        closeCh: make(chan struct{}),
    }
    b.eps[ep] = struct{}{}
    return ep
}

func (b *Bus) detach(ep *Endpoint) {
    b.mu.Lock(); delete(b.eps, ep); b.mu.Unlock()
}

func (b *Bus) broadcast(from string, data []byte) {
    b.mu.RLock(); defer b.mu.RUnlock()
    for ep := range b.eps {
        if b.loss != nil && b.loss(from, ep.addr) { continue }
        pkt := make([]byte, len(data))
        copy(pkt, data)
        ep.deliver(transport.Packet{Data: pkt, From: from})
    }
}

// Endpoint is one attachment to a Bus.
type Endpoint struct {
    bus       *Bus
    addr      string
    rxCh      chan transport.Packet
    closeCh   chan struct{}
    closeOnce sync.Once
    dropped   atomic.Uint64
}

func (e *Endpoint) Kind() transport.Kind { return transport.KindMem }

// Addr returns the endpoint's bus address.
func (e *Endpoint) Addr() string { return e.addr }

func (e *Endpoint) Send(ctx context.Context, b []byte) error {
    if err := ctx.Err(); err != nil { return err }
    select {
    case <-e.closeCh:
        return transport.ErrClosed
    default:
    }
    e.bus.broadcast(e.addr, b)
    return nil
}

func (e *Endpoint) Recv(ctx context.Context) (transport.Packet, error) {
    select {
    case <-ctx.Done():
        return transport.Packet{}, ctx.Err()
    case <-e.closeCh:
        return transport.Packet{}, transport.ErrClosed
    case p := <-e.rxCh:
        return p, nil
    }
}

func (e *Endpoint) Dropped() uint64 { return e.dropped.Load() }

func (e *Endpoint) Close() error {
    e.closeOnce.Do(func() {
        e.bus.detach(e)
        close(e.closeCh)
    })
    return nil
}

// deliver enqueues without blocking; drop if full.
func (e *Endpoint) deliver(p transport.Packet) {
    select {
    case <-e.closeCh:
        return
    default:
    }
    select {
    case e.rxCh <- p:
    default:
        e.dropped.Add(1)
    }
}

var _ transport.Datagram = (*Endpoint)(nil)
