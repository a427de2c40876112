// Package membership tracks which devices have been heard from recently.
//
// The Registry is a bounded table keyed by device id. Records are created on
// first observation, refreshed on every later one, and flipped to inactive by
// SweepTimeouts. Records are never removed; a slot is only ever reused by the
// same id. The table is owned by a single goroutine and does no locking.
package membership

import (
    "errors"
    "time"

    "go.uber.org/zap"

    "edtsp/pkg/protocol"
)

// ErrRegistryFull is returned by Observe for an unknown id when every slot is
// taken. The observation is dropped; known devices are unaffected.
var ErrRegistryFull = errors.New("membership: registry full")

const (
    DefaultMaxDevices = 256
    DefaultTimeout    = 5000 * time.Millisecond
)

// Record is the registry's view of one remote device.
type Record struct {
    ID         uint32        `json:"id"`
    LastSeenMS uint64        `json:"last_seen_ms"`
    Role       protocol.Role `json:"role"`
    Active     bool          `json:"active"`
}

// Options configures a Registry. Zero values take the defaults above.
type Options struct {
    MaxDevices int
    Timeout    time.Duration
    Logger     *zap.Logger
}

// Registry is the bounded device table.
type Registry struct {
    records   []Record
    index     map[uint32]int
    max       int
    timeoutMS uint64
    expired   []uint32
    log       *zap.Logger
}

func New(opts Options) *Registry {
    if opts.MaxDevices <= 0 { opts.MaxDevices = DefaultMaxDevices }
    if opts.Timeout <= 0 { opts.Timeout = DefaultTimeout }
    if opts.Logger == nil { opts.Logger = zap.L() }
    return &Registry{
        records:   make([]Record, 0, opts.MaxDevices),
        index:     make(map[uint32]int, opts.MaxDevices),
        max:       opts.MaxDevices,
        timeoutMS: uint64(opts.Timeout / time.Millisecond),
        log:       opts.Logger.Named("membership"),
    }
}

// Observe records that id was heard at nowMS announcing role. Unknown ids are
// inserted active; known ids are refreshed and reactivated unconditionally.
// created reports whether a new record was inserted.
func (r *Registry) Observe(id uint32, nowMS uint64, role protocol.Role) (created bool, err error) {
    idx, ok := r.index[id]
    if !ok {
        if len(r.records) >= r.max {
            r.log.Warn("device list full, observation dropped",
                zap.String("id", protocol.FormatID(id)), zap.Int("max_devices", r.max))
            return false, ErrRegistryFull
        }
        idx = len(r.records)
        r.records = append(r.records, Record{ID: id})
        r.index[id] = idx
        created = true
        r.log.Info("new device discovered", zap.String("id", protocol.FormatID(id)))
    }
    rec := &r.records[idx]
    if !created && !rec.Active {
        r.log.Info("device rejoined", zap.String("id", protocol.FormatID(id)),
            zap.Uint64("offline_ms", elapsed(nowMS, rec.LastSeenMS)))
    }
    rec.LastSeenMS = nowMS
    rec.Role = role
    rec.Active = true
    return created, nil
}

// SweepTimeouts marks every active record not refreshed within the timeout as
// inactive and reports whether any record flipped. It is the only path to
// inactive; repeated calls with the same nowMS report false.
func (r *Registry) SweepTimeouts(nowMS uint64) (changed bool) {
    r.expired = r.expired[:0]
    for i := range r.records {
        rec := &r.records[i]
        if !rec.Active { continue }
        age := elapsed(nowMS, rec.LastSeenMS)
        if age > r.timeoutMS {
            rec.Active = false
            r.expired = append(r.expired, rec.ID)
            changed = true
            r.log.Info("device timeout", zap.String("id", protocol.FormatID(rec.ID)), zap.Uint64("last_seen_ago_ms", age))
        }
    }
    return changed
}

// Expired returns the ids flipped to inactive by the most recent sweep.
func (r *Registry) Expired() []uint32 { return append([]uint32(nil), r.expired...) }

// ActiveIDs returns the ids of active records in insertion order.
func (r *Registry) ActiveIDs() []uint32 {
    out := make([]uint32, 0, len(r.records))
    for i := range r.records {
        if r.records[i].Active { out = append(out, r.records[i].ID) }
    }
    return out
}

// CountActive returns the number of active records (self not included).
func (r *Registry) CountActive() int {
    n := 0
    for i := range r.records {
        if r.records[i].Active { n++ }
    }
    return n
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id uint32) (Record, bool) {
    idx, ok := r.index[id]
    if !ok { return Record{}, false }
    return r.records[idx], true
}

// Records returns a copy of every record, active or not, in insertion order.
func (r *Registry) Records() []Record { return append([]Record(nil), r.records...) }

// Len is the number of occupied slots; Cap the configured maximum.
func (r *Registry) Len() int { return len(r.records) }
func (r *Registry) Cap() int { return r.max }

// Timeout returns the liveness window.
func (r *Registry) Timeout() time.Duration { return time.Duration(r.timeoutMS) * time.Millisecond }

// elapsed tolerates a clock that went backwards by treating it as no time passed.
func elapsed(now, then uint64) uint64 {
    if now < then { return 0 }
    return now - then
}
