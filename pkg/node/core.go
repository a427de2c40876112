// Package node ties the codec, membership registry and election engine into
// the per-device processing core, and runs it against a transport.
package node

import (
    "errors"
    "math"
    "time"

    "go.uber.org/zap"

    "edtsp/pkg/election"
    "edtsp/pkg/membership"
    "edtsp/pkg/observability"
    "edtsp/pkg/protocol"
    "edtsp/pkg/status"
)

// DropSelf is the drop reason for packets carrying our own source id.
const DropSelf = "self"

// Options configures a Core. Zero values take package defaults.
type Options struct {
    MaxDevices int
    Timeout    time.Duration
    DeviceName string
    Interface  protocol.InterfaceKind
    StartMS    uint64 // clock reading uptime is measured from
    Instance   string // process instance id for status; generated when empty
    Logger     *zap.Logger
    Metrics    *observability.Metrics // optional
}

// Result reports what handling one datagram or tick did.
type Result struct {
    Packet protocol.Packet // nil when the datagram was rejected
    Err    error
    // Dropped is a short reason label when the input was discarded.
    Dropped    string
    Created    bool // a new registry record was inserted
    Transition election.Transition
    Changed    bool // Transition is valid
    // MasterChanged is set when the master id moved, with or without a
    // local role change.
    MasterChanged bool
    Expired    []uint32
}

// Core is the single-owner state of one device. It never blocks and performs
// no I/O; callers supply time and deliver the bytes it builds.
type Core struct {
    self    uint32
    opts    Options
    reg     *membership.Registry
    eng     *election.Engine
    log     *zap.Logger
    metrics *observability.Metrics
}

// New returns a Core for selfID. The role starts Unknown.
func New(selfID uint32, opts Options) *Core {
    if opts.Logger == nil { opts.Logger = zap.L() }
    if opts.Instance == "" { opts.Instance = status.NewInstanceID() }
    log := opts.Logger.Named("node")
    return &Core{
        self: selfID,
        opts: opts,
        reg: membership.New(membership.Options{
            MaxDevices: opts.MaxDevices,
            Timeout:    opts.Timeout,
            Logger:     opts.Logger,
        }),
        eng:     election.New(selfID),
        log:     log,
        metrics: opts.Metrics,
    }
}

func (c *Core) SelfID() uint32 { return c.self }
func (c *Core) Role() protocol.Role { return c.eng.Role() }
func (c *Core) Master() uint32 { return c.eng.Master() }
func (c *Core) IsMaster() bool { return c.eng.IsMaster() }
func (c *Core) Registry() *membership.Registry { return c.reg }

// ActiveDevices counts active devices including self.
func (c *Core) ActiveDevices() int { return c.reg.CountActive() + 1 }

// HandleDatagram decodes buf and applies it at nowMS. Discovery and
// Heartbeat refresh the registry and trigger an election; the other kinds
// are accepted and reported without state change.
func (c *Core) HandleDatagram(buf []byte, nowMS uint64) Result {
    pkt, err := protocol.Decode(buf)
    if err != nil {
        reason := protocol.DropReason(err)
        c.log.Debug("packet rejected", zap.String("reason", reason), zap.Int("len", len(buf)), zap.Error(err))
        if c.metrics != nil { c.metrics.PacketsDropped.WithLabelValues(reason).Inc() }
        return Result{Err: err, Dropped: reason}
    }
    if pkt.Source() == c.self {
        if c.metrics != nil { c.metrics.PacketsDropped.WithLabelValues(DropSelf).Inc() }
        return Result{Packet: pkt, Dropped: DropSelf}
    }
    if c.metrics != nil { c.metrics.PacketsReceived.WithLabelValues(pkt.Kind().String()).Inc() }

    res := Result{Packet: pkt}
    id := zap.String("id", protocol.FormatID(pkt.Source()))
    switch p := pkt.(type) {
    case *protocol.Discovery:
        c.log.Info("discovery", id, zap.String("name", p.Name), zap.Stringer("iface", p.Interface))
        c.observe(&res, p.Source(), nowMS, protocol.RoleUnknown)
    case *protocol.Heartbeat:
        c.log.Debug("heartbeat", id, zap.Stringer("role", p.Role),
            zap.Uint32("uptime_ms", p.UptimeMS), zap.Uint8("devices", p.ActiveDevices))
        c.observe(&res, p.Source(), nowMS, p.Role)
    case *protocol.Handshake:
        c.log.Debug("handshake not handled", id, zap.Uint8("step", uint8(p.Step)),
            zap.String("target", protocol.FormatID(p.Target)), zap.Stringer("caps", p.Capabilities))
    case *protocol.Config:
        c.log.Debug("config not handled", id, zap.String("target", protocol.FormatID(p.Target)),
            zap.Uint8("sensor", p.SensorID), zap.Uint16("rate_ms", p.SamplingRateMS), zap.Bool("enable", p.Enable))
    case *protocol.Data:
        c.log.Debug("data not handled", id, zap.Uint8("sensor", p.SensorID), zap.Int("len", len(p.Payload)))
    }
    return res
}

func (c *Core) observe(res *Result, id uint32, nowMS uint64, role protocol.Role) {
    created, err := c.reg.Observe(id, nowMS, role)
    if err != nil {
        res.Err = err
        if errors.Is(err, membership.ErrRegistryFull) {
            res.Dropped = "registry_full"
            if c.metrics != nil { c.metrics.RegistryFull.Inc() }
        }
        return
    }
    res.Created = created
    c.elect(res)
}

// Tick runs the timeout sweep at nowMS and re-elects only if a device
// expired.
func (c *Core) Tick(nowMS uint64) Result {
    var res Result
    if !c.reg.SweepTimeouts(nowMS) {
        c.gauge()
        return res
    }
    res.Expired = c.reg.Expired()
    c.elect(&res)
    return res
}

func (c *Core) elect(res *Result) {
    t, changed := c.eng.Evaluate(c.reg.ActiveIDs())
    res.Transition, res.Changed = t, changed
    res.MasterChanged = c.eng.MasterChanged()
    if changed {
        c.log.Info("role change",
            zap.Stringer("from", t.From), zap.Stringer("to", t.To),
            zap.String("self", protocol.FormatID(c.self)), zap.String("master", protocol.FormatID(t.Master)))
        if c.metrics != nil { c.metrics.RoleTransitions.WithLabelValues(t.To.String()).Inc() }
    } else if c.eng.MasterChanged() {
        c.log.Info("master changed", zap.String("master", protocol.FormatID(c.eng.Master())))
    }
    c.gauge()
}

func (c *Core) gauge() {
    if c.metrics == nil { return }
    c.metrics.ActiveDevices.Set(float64(c.ActiveDevices()))
    c.metrics.ObserveRole(c.eng.Role(), c.eng.Master())
}

// BuildHeartbeat encodes a heartbeat with the current role, uptime since
// StartMS and the active count including self.
func (c *Core) BuildHeartbeat(nowMS uint64) []byte {
    var up uint64
    if nowMS > c.opts.StartMS { up = nowMS - c.opts.StartMS }
    return protocol.EncodeHeartbeat(c.self, c.eng.Role(), uint32(up), clampU8(c.ActiveDevices()))
}

// BuildDiscovery encodes the startup announcement.
func (c *Core) BuildDiscovery() []byte {
    return protocol.EncodeDiscovery(c.self, c.opts.Interface, c.opts.DeviceName)
}

// Snapshot returns the status view at nowMS, devices sorted by id.
func (c *Core) Snapshot(nowMS uint64) status.Snapshot {
    recs := c.reg.Records()
    s := status.Snapshot{
        Instance:    c.opts.Instance,
        Self:        protocol.FormatID(c.self),
        SelfID:      c.self,
        DeviceName:  c.opts.DeviceName,
        Interface:   c.opts.Interface.String(),
        Role:        c.eng.Role().String(),
        Master:      protocol.FormatID(c.eng.Master()),
        MasterID:    c.eng.Master(),
        NowMS:       nowMS,
        ActiveCount: c.ActiveDevices(),
        Capacity:    c.reg.Cap(),
        Devices:     make([]status.Device, 0, len(recs)),
    }
    for _, r := range recs {
        var age uint64
        if nowMS > r.LastSeenMS { age = nowMS - r.LastSeenMS }
        s.Devices = append(s.Devices, status.Device{
            ID:         protocol.FormatID(r.ID),
            RawID:      r.ID,
            Role:       r.Role.String(),
            LastSeenMS: r.LastSeenMS,
            AgeMS:      age,
            Active:     r.Active,
        })
    }
    s.Sort()
    return s
}

func clampU8(n int) uint8 {
    if n > math.MaxUint8 { return math.MaxUint8 }
    if n < 0 { return 0 }
    return uint8(n)
}
