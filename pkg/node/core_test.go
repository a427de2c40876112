package node

import (
    "errors"
    "testing"
    "time"

    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "go.uber.org/zap/zaptest/observer"

    "edtsp/pkg/membership"
    "edtsp/pkg/observability"
    "edtsp/pkg/protocol"
)

func newCore(t *testing.T, self uint32, max int) *Core {
    t.Helper()
    return New(self, Options{MaxDevices: max, Timeout: 5 * time.Second, Logger: zap.NewNop()})
}

func hb(src uint32, role protocol.Role) []byte {
    return protocol.EncodeHeartbeat(src, role, 0, 1)
}

func TestConvergenceAfterMasterTimeout(t *testing.T) {
    c := newCore(t, 100, 0)

    c.HandleDatagram(hb(50, protocol.RoleSlave), 0)
    res := c.HandleDatagram(hb(200, protocol.RoleMaster), 0)
    assert.Equal(t, protocol.RoleSlave, c.Role())
    assert.Equal(t, uint32(200), c.Master())
    require.True(t, res.Changed)
    assert.Equal(t, protocol.RoleMaster, res.Transition.From)

    // refreshes without a topology change report nothing
    res = c.HandleDatagram(hb(200, protocol.RoleMaster), 1000)
    assert.False(t, res.Changed)
    c.HandleDatagram(hb(50, protocol.RoleSlave), 1000)

    res = c.Tick(6001)
    require.True(t, res.Changed)
    assert.Equal(t, protocol.RoleSlave, res.Transition.From)
    assert.Equal(t, protocol.RoleMaster, res.Transition.To)
    assert.Equal(t, uint32(100), res.Transition.Master)
    assert.ElementsMatch(t, []uint32{50, 200}, res.Expired)
    assert.True(t, c.IsMaster())
}

func TestFirstObservationTransitionsFromUnknown(t *testing.T) {
    c := newCore(t, 100, 0)
    assert.Equal(t, protocol.RoleUnknown, c.Role())
    res := c.HandleDatagram(protocol.EncodeDiscovery(50, protocol.InterfaceEthernet, "a"), 10)
    require.True(t, res.Changed)
    assert.Equal(t, protocol.RoleUnknown, res.Transition.From)
    assert.Equal(t, protocol.RoleMaster, res.Transition.To)
    assert.True(t, res.Created)

    rec, ok := c.Registry().Get(50)
    require.True(t, ok)
    assert.Equal(t, protocol.RoleUnknown, rec.Role)
}

func TestRejoinRestoresSlave(t *testing.T) {
    c := newCore(t, 100, 0)
    c.HandleDatagram(hb(200, protocol.RoleMaster), 0)
    c.Tick(6000)
    require.True(t, c.IsMaster())

    res := c.HandleDatagram(hb(200, protocol.RoleMaster), 7000)
    require.True(t, res.Changed)
    assert.False(t, res.Created)
    assert.Equal(t, protocol.RoleSlave, c.Role())
    assert.Equal(t, 2, c.ActiveDevices())
}

func TestRegistryFullDoesNotReelect(t *testing.T) {
    m := observability.NewMetrics()
    c := New(100, Options{MaxDevices: 1, Timeout: 5 * time.Second, Logger: zap.NewNop(), Metrics: m})
    c.HandleDatagram(hb(50, protocol.RoleSlave), 0)
    require.True(t, c.IsMaster())

    res := c.HandleDatagram(hb(999, protocol.RoleMaster), 1)
    assert.True(t, errors.Is(res.Err, membership.ErrRegistryFull))
    assert.Equal(t, "registry_full", res.Dropped)
    assert.False(t, res.Changed)
    assert.True(t, c.IsMaster(), "rejected device must not win")
    assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistryFull))

    // known devices keep working
    res = c.HandleDatagram(hb(50, protocol.RoleSlave), 2)
    assert.NoError(t, res.Err)
}

func TestMasterMoveWithoutRoleChange(t *testing.T) {
    c := newCore(t, 100, 0)
    res := c.HandleDatagram(hb(200, protocol.RoleMaster), 0)
    assert.True(t, res.Changed)
    assert.True(t, res.MasterChanged)

    res = c.HandleDatagram(hb(300, protocol.RoleMaster), 10)
    assert.False(t, res.Changed, "still Slave")
    assert.True(t, res.MasterChanged)
    assert.Equal(t, uint32(300), c.Master())

    res = c.HandleDatagram(hb(200, protocol.RoleSlave), 20)
    assert.False(t, res.MasterChanged)
}

func TestSweepIdempotent(t *testing.T) {
    c := newCore(t, 100, 0)
    c.HandleDatagram(hb(200, protocol.RoleMaster), 0)
    assert.True(t, c.Tick(6000).Changed)
    res := c.Tick(6000)
    assert.False(t, res.Changed)
    assert.Empty(t, res.Expired)
}

func TestTickWithinTimeoutKeepsRole(t *testing.T) {
    c := newCore(t, 100, 0)
    c.HandleDatagram(hb(200, protocol.RoleMaster), 0)
    assert.False(t, c.Tick(5000).Changed)
    assert.Equal(t, protocol.RoleSlave, c.Role())
}

func TestOwnPacketsDropped(t *testing.T) {
    m := observability.NewMetrics()
    c := New(100, Options{Logger: zap.NewNop(), Metrics: m})
    res := c.HandleDatagram(hb(100, protocol.RoleMaster), 0)
    assert.Equal(t, DropSelf, res.Dropped)
    assert.Equal(t, 0, c.Registry().Len())
    assert.Equal(t, protocol.RoleUnknown, c.Role())
    assert.Equal(t, 1.0, testutil.ToFloat64(m.PacketsDropped.WithLabelValues(DropSelf)))
}

func TestInvalidPacketsCountedNotFatal(t *testing.T) {
    m := observability.NewMetrics()
    c := New(100, Options{Logger: zap.NewNop(), Metrics: m})

    bad := hb(200, protocol.RoleMaster)
    bad[0] = 0x00
    res := c.HandleDatagram(bad, 0)
    assert.ErrorIs(t, res.Err, protocol.ErrInvalidMagic)
    assert.Equal(t, "invalid_magic", res.Dropped)

    res = c.HandleDatagram(bad[:3], 0)
    assert.ErrorIs(t, res.Err, protocol.ErrTruncatedPacket)

    assert.Equal(t, 0, c.Registry().Len())
    assert.Equal(t, protocol.RoleUnknown, c.Role())
    assert.Equal(t, 1.0, testutil.ToFloat64(m.PacketsDropped.WithLabelValues("invalid_magic")))
}

func TestUnhandledKindsLeaveStateAlone(t *testing.T) {
    c := newCore(t, 100, 0)
    data, err := protocol.EncodeData(7, 1, 2, []byte{1, 2})
    require.NoError(t, err)
    frames := [][]byte{
        protocol.EncodeHandshake(7, protocol.HandshakeSyn, 100, protocol.CapTemperature, protocol.InterfaceWiFi),
        protocol.EncodeConfig(7, 100, 1, 500, true),
        data,
    }
    for _, f := range frames {
        res := c.HandleDatagram(f, 0)
        assert.NoError(t, res.Err)
        assert.NotNil(t, res.Packet)
        assert.False(t, res.Changed)
    }
    assert.Equal(t, 0, c.Registry().Len())
}

func TestBuildHeartbeat(t *testing.T) {
    c := New(100, Options{StartMS: 1000, Logger: zap.NewNop()})
    c.HandleDatagram(hb(50, protocol.RoleSlave), 1000)
    c.HandleDatagram(hb(60, protocol.RoleSlave), 1000)

    pkt, err := protocol.Decode(c.BuildHeartbeat(3500))
    require.NoError(t, err)
    h := pkt.(*protocol.Heartbeat)
    assert.Equal(t, uint32(100), h.Source())
    assert.Equal(t, protocol.RoleMaster, h.Role)
    assert.Equal(t, uint32(2500), h.UptimeMS)
    assert.Equal(t, uint8(3), h.ActiveDevices)
}

func TestBuildDiscovery(t *testing.T) {
    c := New(100, Options{DeviceName: "lab-pc", Interface: protocol.InterfaceWiFi, Logger: zap.NewNop()})
    pkt, err := protocol.Decode(c.BuildDiscovery())
    require.NoError(t, err)
    d := pkt.(*protocol.Discovery)
    assert.Equal(t, "lab-pc", d.Name)
    assert.Equal(t, protocol.InterfaceWiFi, d.Interface)
}

func TestSnapshot(t *testing.T) {
    c := New(100, Options{Instance: "inst", Logger: zap.NewNop()})
    c.HandleDatagram(hb(200, protocol.RoleMaster), 0)
    c.HandleDatagram(hb(50, protocol.RoleSlave), 0)
    s := c.Snapshot(1500)
    assert.Equal(t, "inst", s.Instance)
    assert.Equal(t, "SLAVE", s.Role)
    assert.Equal(t, "0x000000C8", s.Master)
    assert.Equal(t, 3, s.ActiveCount)
    require.Len(t, s.Devices, 2)
    assert.Equal(t, uint32(50), s.Devices[0].RawID)
    assert.Equal(t, uint64(1500), s.Devices[1].AgeMS)
}

func TestRoleChangeLogged(t *testing.T) {
    zc, logs := observer.New(zapcore.InfoLevel)
    c := New(100, Options{Logger: zap.New(zc)})
    c.HandleDatagram(hb(200, protocol.RoleMaster), 0)
    entries := logs.FilterMessage("role change").All()
    require.Len(t, entries, 1)
    assert.Equal(t, "SLAVE", entries[0].ContextMap()["to"])
}

func TestClampU8(t *testing.T) {
    assert.Equal(t, uint8(255), clampU8(4096))
    assert.Equal(t, uint8(0), clampU8(-1))
    assert.Equal(t, uint8(7), clampU8(7))
}
