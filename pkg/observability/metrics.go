package observability

import (
    "net/http"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "edtsp/pkg/protocol"
)

// Metrics groups the node's prometheus collectors. Each node owns its own
// registry so several nodes can run in one process (tests, simulations).
type Metrics struct {
    Registry *prometheus.Registry

    PacketsReceived *prometheus.CounterVec
    PacketsDropped  *prometheus.CounterVec
    PacketsSent     *prometheus.CounterVec
    RegistryFull    prometheus.Counter
    QueueDropped    prometheus.Counter
    RoleTransitions *prometheus.CounterVec
    ActiveDevices   prometheus.Gauge
    Role            prometheus.Gauge
    MasterID        prometheus.Gauge
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
    m := &Metrics{
        Registry: prometheus.NewRegistry(),
        PacketsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "edtsp",
            Name:      "packets_received_total",
            Help:      "Valid packets received, by kind.",
        }, []string{"kind"}),
        PacketsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "edtsp",
            Name:      "packets_dropped_total",
            Help:      "Inbound datagrams rejected by the codec, by reason.",
        }, []string{"reason"}),
        PacketsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "edtsp",
            Name:      "packets_sent_total",
            Help:      "Packets sent, by kind.",
        }, []string{"kind"}),
        RegistryFull: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: "edtsp",
            Name:      "registry_full_total",
            Help:      "Observations dropped because the device table was full.",
        }),
        QueueDropped: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: "edtsp",
            Name:      "inbound_queue_dropped_total",
            Help:      "Datagrams dropped because the inbound queue was full.",
        }),
        RoleTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "edtsp",
            Name:      "role_transitions_total",
            Help:      "Local role transitions, by new role.",
        }, []string{"to"}),
        ActiveDevices: prometheus.NewGauge(prometheus.GaugeOpts{
            Namespace: "edtsp",
            Name:      "active_devices",
            Help:      "Active devices including self.",
        }),
        Role: prometheus.NewGauge(prometheus.GaugeOpts{
            Namespace: "edtsp",
            Name:      "role",
            Help:      "Current local role (0 unknown, 1 slave, 2 master).",
        }),
        MasterID: prometheus.NewGauge(prometheus.GaugeOpts{
            Namespace: "edtsp",
            Name:      "master_id",
            Help:      "Device id of the current master.",
        }),
    }
    startTime := time.Now()
    uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
        Namespace: "edtsp",
        Name:      "uptime_seconds",
        Help:      "Process uptime in seconds.",
    }, func() float64 { return time.Since(startTime).Seconds() })

    m.Registry.MustRegister(m.PacketsReceived, m.PacketsDropped, m.PacketsSent, m.RegistryFull,
        m.QueueDropped, m.RoleTransitions, m.ActiveDevices, m.Role, m.MasterID, uptime)
    return m
}

// Handler exposes /metrics for this registry.
func (m *Metrics) Handler() http.Handler {
    return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// WatchTransportDrops exports a transport's socket-level drop count, read at
// scrape time.
func (m *Metrics) WatchTransportDrops(kind string, dropped func() uint64) {
    m.Registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
        Namespace:   "edtsp",
        Name:        "transport_dropped_total",
        Help:        "Datagrams dropped by the transport reader because its queue was full.",
        ConstLabels: prometheus.Labels{"transport": kind},
    }, func() float64 { return float64(dropped()) }))
}

// ObserveRole records the current role and master.
func (m *Metrics) ObserveRole(role protocol.Role, master uint32) {
    m.Role.Set(float64(role))
    m.MasterID.Set(float64(master))
}
