// Package clock supplies the monotonic millisecond time source the core is
// driven by.
package clock

import (
    "sync/atomic"
    "time"
)

// Clock returns monotonic milliseconds. Only differences are meaningful.
type Clock interface {
    NowMS() uint64
}

type system struct{ start time.Time }

// System returns a clock counting milliseconds since its creation. It reads
// Go's monotonic clock reading, so wall-clock steps do not affect it.
func System() Clock { return system{start: time.Now()} }

func (s system) NowMS() uint64 { return uint64(time.Since(s.start) / time.Millisecond) }

// Manual is a clock moved explicitly by tests and simulations.
type Manual struct{ ms atomic.Uint64 }

func NewManual(startMS uint64) *Manual {
    m := &Manual{}
    m.ms.Store(startMS)
    return m
}

func (m *Manual) NowMS() uint64           { return m.ms.Load() }
func (m *Manual) Set(ms uint64)           { m.ms.Store(ms) }
func (m *Manual) Advance(d time.Duration) { m.ms.Add(uint64(d / time.Millisecond)) }
