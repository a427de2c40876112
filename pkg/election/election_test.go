package election

import (
    "math/rand"
    "testing"

    "edtsp/pkg/protocol"
)

func TestElectEmptySetMakesSelfMaster(t *testing.T) {
    e := New(100)
    tr, changed := e.Evaluate(nil)
    if !changed || tr.From != protocol.RoleUnknown || tr.To != protocol.RoleMaster || tr.Master != 100 {
        t.Fatalf("unexpected transition: %#v changed=%v", tr, changed)
    }
    if _, changed := e.Evaluate(nil); changed { t.Fatalf("same view must not report a transition") }
}

func TestElectUnsignedComparison(t *testing.T) {
    // ids above 1<<31 must compare as unsigned
    if got := Elect(1, []uint32{0x7FFFFFFF, 0x80000000}); got != 0x80000000 {
        t.Fatalf("elect = %#x", got)
    }
    if got := Elect(0xFFFFFFFF, []uint32{1, 2}); got != 0xFFFFFFFF { t.Fatalf("elect = %#x", got) }
}

func TestElectionDeterminism(t *testing.T) {
    rng := rand.New(rand.NewSource(7))
    for i := 0; i < 500; i++ {
        self := rng.Uint32()
        n := rng.Intn(6)
        active := make([]uint32, n)
        hi := self
        for j := range active {
            active[j] = rng.Uint32()
            if active[j] > hi { hi = active[j] }
        }
        e := New(self)
        e.Evaluate(active)
        want := protocol.RoleSlave
        if self == hi { want = protocol.RoleMaster }
        if e.Role() != want || e.Master() != hi {
            t.Fatalf("self=%d active=%v: role=%s master=%d", self, active, e.Role(), e.Master())
        }
    }
}

func TestTransitionsReportedOnce(t *testing.T) {
    e := New(100)
    tr, ok := e.Evaluate([]uint32{50, 200})
    if !ok || tr.To != protocol.RoleSlave || tr.Master != 200 { t.Fatalf("first: %#v %v", tr, ok) }
    if _, ok := e.Evaluate([]uint32{50, 200}); ok { t.Fatalf("repeat must not transition") }

    // slave -> slave with a new master is not a role transition
    if _, ok := e.Evaluate([]uint32{50, 300}); ok { t.Fatalf("master change is not a role change") }
    if !e.MasterChanged() || e.Master() != 300 { t.Fatalf("master change not tracked: %d", e.Master()) }

    tr, ok = e.Evaluate([]uint32{50})
    if !ok || tr.From != protocol.RoleSlave || tr.To != protocol.RoleMaster || tr.Master != 100 {
        t.Fatalf("failover: %#v %v", tr, ok)
    }
    if !e.IsMaster() { t.Fatalf("expected master") }
}

func TestConvergenceAcrossDevices(t *testing.T) {
    ids := []uint32{17, 4000, 99, 3}
    masters := map[uint32]bool{}
    for _, self := range ids {
        var others []uint32
        for _, id := range ids {
            if id != self { others = append(others, id) }
        }
        e := New(self)
        e.Evaluate(others)
        masters[e.Master()] = true
    }
    if len(masters) != 1 || !masters[4000] { t.Fatalf("devices did not converge: %v", masters) }
}
