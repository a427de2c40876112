package node

import (
    "context"
    "errors"
    "sync"
    "time"

    "go.uber.org/zap"

    "edtsp/pkg/clock"
    "edtsp/pkg/election"
    "edtsp/pkg/observability"
    "edtsp/pkg/protocol"
    "edtsp/pkg/status"
    "edtsp/pkg/transport"
)

const (
    DefaultHeartbeatInterval = 1000 * time.Millisecond
    DefaultSweepInterval     = 1000 * time.Millisecond
    DefaultStatusInterval    = 5000 * time.Millisecond
)

// RunnerOptions configures the event loop. Zero durations take the defaults;
// a negative StatusInterval disables the periodic status dump.
type RunnerOptions struct {
    HeartbeatInterval time.Duration
    SweepInterval     time.Duration
    StatusInterval    time.Duration
    QueueSize         int
    Clock             clock.Clock
    Logger            *zap.Logger
    Metrics           *observability.Metrics
    // OnTransition is called from the loop goroutine after each role change.
    OnTransition func(election.Transition)
}

// Runner drives a Core from one goroutine: inbound datagrams, heartbeat,
// sweep and status timers are all serialized through Run.
type Runner struct {
    core    *Core
    tr      transport.Datagram
    opts    RunnerOptions
    log     *zap.Logger
    inbound chan transport.Packet

    mu   sync.RWMutex
    snap status.Snapshot
}

func NewRunner(core *Core, tr transport.Datagram, opts RunnerOptions) *Runner {
    if opts.HeartbeatInterval <= 0 { opts.HeartbeatInterval = DefaultHeartbeatInterval }
    if opts.SweepInterval <= 0 { opts.SweepInterval = DefaultSweepInterval }
    if opts.StatusInterval == 0 { opts.StatusInterval = DefaultStatusInterval }
    if opts.QueueSize <= 0 { opts.QueueSize = transport.DefaultQueueSize }
    if opts.Clock == nil { opts.Clock = clock.System() }
    if opts.Logger == nil { opts.Logger = zap.L() }
    r := &Runner{
        core:    core,
        tr:      tr,
        opts:    opts,
        log:     opts.Logger.Named("runner"),
        inbound: make(chan transport.Packet, opts.QueueSize),
    }
    r.snap = core.Snapshot(opts.Clock.NowMS())
    return r
}

// Snapshot returns the status published after the most recent event. Safe
// for concurrent use.
func (r *Runner) Snapshot() status.Snapshot {
    r.mu.RLock(); defer r.mu.RUnlock()
    return r.snap
}

// Run sends a Discovery, then processes events until ctx is done. It does not
// close the transport.
func (r *Runner) Run(ctx context.Context) error {
    ctx, cancel := context.WithCancel(ctx)
    var wg sync.WaitGroup
    defer wg.Wait()
    defer cancel()
    wg.Add(1)
    go func() { defer wg.Done(); r.readLoop(ctx) }()

    r.send(ctx, protocol.KindDiscovery, r.core.BuildDiscovery())
    r.log.Info("node started",
        zap.String("self", protocol.FormatID(r.core.SelfID())),
        zap.Stringer("transport", r.tr.Kind()),
        zap.Duration("heartbeat", r.opts.HeartbeatInterval),
        zap.Duration("timeout", r.core.Registry().Timeout()))

    hb := time.NewTicker(r.opts.HeartbeatInterval)
    defer hb.Stop()
    sweep := time.NewTicker(r.opts.SweepInterval)
    defer sweep.Stop()
    var statusC <-chan time.Time
    if r.opts.StatusInterval > 0 {
        st := time.NewTicker(r.opts.StatusInterval)
        defer st.Stop()
        statusC = st.C
    }

    for {
        select {
        case <-ctx.Done():
            r.log.Info("node stopping", zap.String("self", protocol.FormatID(r.core.SelfID())))
            return nil
        case pkt := <-r.inbound:
            now := r.opts.Clock.NowMS()
            res := r.core.HandleDatagram(pkt.Data, now)
            r.after(ctx, res, now)
        case <-hb.C:
            now := r.opts.Clock.NowMS()
            r.send(ctx, protocol.KindHeartbeat, r.core.BuildHeartbeat(now))
        case <-sweep.C:
            now := r.opts.Clock.NowMS()
            r.after(ctx, r.core.Tick(now), now)
        case <-statusC:
            s := r.Snapshot()
            for _, line := range s.Lines() {
                r.log.Info(line)
            }
        }
    }
}

// after publishes state and announces a role change right away.
func (r *Runner) after(ctx context.Context, res Result, now uint64) {
    if res.Changed {
        r.send(ctx, protocol.KindHeartbeat, r.core.BuildHeartbeat(now))
        if r.opts.OnTransition != nil { r.opts.OnTransition(res.Transition) }
    }
    s := r.core.Snapshot(now)
    r.mu.Lock(); r.snap = s; r.mu.Unlock()
}

func (r *Runner) send(ctx context.Context, kind protocol.Kind, b []byte) {
    if err := r.tr.Send(ctx, b); err != nil {
        if ctx.Err() == nil {
            r.log.Warn("send failed", zap.Stringer("kind", kind), zap.Error(err))
        }
        return
    }
    if r.opts.Metrics != nil { r.opts.Metrics.PacketsSent.WithLabelValues(kind.String()).Inc() }
}

// readLoop moves frames from the transport to the loop; drop if full.
func (r *Runner) readLoop(ctx context.Context) {
    for {
        pkt, err := r.tr.Recv(ctx)
        if err != nil {
            if ctx.Err() != nil || errors.Is(err, transport.ErrClosed) { return }
            r.log.Debug("recv error", zap.Error(err))
            continue
        }
        select {
        case r.inbound <- pkt:
        default:
            if r.opts.Metrics != nil { r.opts.Metrics.QueueDropped.Inc() }
            r.log.Debug("inbound queue full, datagram dropped", zap.String("from", pkt.From))
        }
    }
}
