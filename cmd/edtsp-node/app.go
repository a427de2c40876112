package main

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "go.uber.org/zap"

    "edtsp/pkg/clock"
    "edtsp/pkg/config"
    "edtsp/pkg/election"
    "edtsp/pkg/identity"
    "edtsp/pkg/node"
    "edtsp/pkg/observability"
    "edtsp/pkg/protocol"
    "edtsp/pkg/protocol/codec"
    "edtsp/pkg/status"
    "edtsp/pkg/transport/udp"
)

// run is the main entry point after CLI parsing.
func run(opts Options) int {
    cfg, err := config.Load(opts.ConfigPath)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
        return 1
    }

    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
        return 1
    }
    defer func() { _ = logger.Sync() }()

    store := identity.NewStore(cfg.IDFilePath(), cfg.Identity.DeviceID)
    if opts.ResetID {
        if err := store.Reset(); err != nil {
            zap.L().Error("failed to reset device id", zap.Error(err))
            return 1
        }
    }
    selfID, err := store.Load()
    if err != nil {
        zap.L().Error("failed to init device id", zap.Error(err))
        return 1
    }
    if opts.PrintID {
        fmt.Println(protocol.FormatID(selfID))
        return 0
    }

    iface, err := protocol.ParseInterfaceKind(cfg.Interface)
    if err != nil {
        zap.L().Error("invalid interface", zap.Error(err))
        return 1
    }

    instance := status.NewInstanceID()
    logger = observability.WithDevice(logger, selfID, instance)
    zap.L().Info("edtsp-node started", zap.String("app", cfg.AppName),
        zap.String("self", protocol.FormatID(selfID)), zap.String("instance", instance))
    zap.L().Info("effective configuration", zap.Any("config", cfg))

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    conn, err := udp.Listen(ctx, udp.Options{
        Group:     cfg.Net.Group,
        Interface: cfg.Net.Interface,
        TTL:       cfg.Net.TTL,
        Loopback:  cfg.Net.Loopback,
        QueueSize: cfg.Net.QueueSize,
    })
    if err != nil {
        zap.L().Error("failed to start transport", zap.Error(err))
        return 1
    }
    defer conn.Close()
    zap.L().Info("transport ready", zap.Stringer("local", conn.LocalAddr()), zap.Stringer("group", conn.Group()))

    metrics := observability.NewMetrics()
    metrics.WatchTransportDrops(conn.Kind().String(), conn.Dropped)
    clk := clock.System()
    core := node.New(selfID, node.Options{
        MaxDevices: cfg.Protocol.MaxDevices,
        Timeout:    cfg.Protocol.Timeout(),
        DeviceName: cfg.DeviceName,
        Interface:  iface,
        StartMS:    clk.NowMS(),
        Instance:   instance,
        Logger:     logger,
        Metrics:    metrics,
    })
    statusEvery := cfg.Protocol.StatusInterval()
    if statusEvery <= 0 { statusEvery = -1 }
    runner := node.NewRunner(core, conn, node.RunnerOptions{
        HeartbeatInterval: cfg.Protocol.HeartbeatInterval(),
        SweepInterval:     cfg.Protocol.SweepInterval(),
        StatusInterval:    statusEvery,
        QueueSize:         cfg.Net.QueueSize,
        Clock:             clk,
        Logger:            logger,
        Metrics:           metrics,
        OnTransition: func(t election.Transition) {
            if t.To == protocol.RoleMaster {
                logger.Info("this device is now MASTER")
            }
        },
    })

    if cfg.Metrics.Listen != "" {
        reg, err := codec.NewRegistry()
        if err != nil {
            zap.L().Error("failed to init codecs", zap.Error(err))
            return 1
        }
        srv := newHTTPServer(cfg.Metrics.Listen, metrics, status.Handler(reg, cfg.Status.Format, runner.Snapshot))
        go func() {
            if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
                zap.L().Error("http server", zap.Error(err))
            }
        }()
        defer func() {
            sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
            defer cancel()
            _ = srv.Shutdown(sctx)
        }()
        zap.L().Info("serving metrics and status", zap.String("listen", cfg.Metrics.Listen))
    }

    if err := runner.Run(ctx); err != nil {
        zap.L().Error("node loop", zap.Error(err))
        return 1
    }
    zap.L().Info("edtsp-node stopped")
    return 0
}

func newHTTPServer(addr string, m *observability.Metrics, statusHandler http.Handler) *http.Server {
    mux := http.NewServeMux()
    mux.Handle("/metrics", m.Handler())
    mux.Handle("/status", statusHandler)
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
