package observability

import (
    "net/http/httptest"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "edtsp/pkg/config"
    "edtsp/pkg/protocol"
)

func TestMetricsCountersAndHandler(t *testing.T) {
    m := NewMetrics()
    m.PacketsDropped.WithLabelValues("invalid_magic").Inc()
    m.RegistryFull.Inc()
    m.ObserveRole(protocol.RoleMaster, 0xAB)

    assert.Equal(t, 1.0, testutil.ToFloat64(m.PacketsDropped.WithLabelValues("invalid_magic")))
    assert.Equal(t, 2.0, testutil.ToFloat64(m.Role))
    assert.Equal(t, float64(0xAB), testutil.ToFloat64(m.MasterID))

    rec := httptest.NewRecorder()
    m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
    require.Equal(t, 200, rec.Code)
    assert.True(t, strings.Contains(rec.Body.String(), "edtsp_registry_full_total 1"))
}

func TestWatchTransportDrops(t *testing.T) {
    m := NewMetrics()
    var n uint64 = 3
    m.WatchTransportDrops("udp", func() uint64 { return n })
    n = 5

    rec := httptest.NewRecorder()
    m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
    require.Equal(t, 200, rec.Code)
    assert.Contains(t, rec.Body.String(), `edtsp_transport_dropped_total{transport="udp"} 5`)
}

func TestParseLevel(t *testing.T) {
    assert.Equal(t, "warn", parseLevel("WARNING").String())
    assert.Equal(t, "info", parseLevel("bogus").String())
}

func TestSetupLoggerWritesFile(t *testing.T) {
    prev := zap.L()
    defer zap.ReplaceGlobals(prev)

    path := filepath.Join(t.TempDir(), "logs", "node.log")
    l, err := SetupLogger(config.LogConfig{Level: "debug", Format: "json", Outputs: []string{path}})
    require.NoError(t, err)
    WithDevice(l, 0xC8, "inst").Info("hello")
    _ = l.Sync()

    b, err := os.ReadFile(path)
    require.NoError(t, err)
    assert.Contains(t, string(b), `"self":"0x000000C8"`)
    assert.Contains(t, string(b), `"level":"info"`)
}
