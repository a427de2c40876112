// Package election derives this device's role from the set of active peers.
//
// The rule is "highest id wins": every device computes max(self, active ids)
// from its own registry view, so there are no election messages and all
// devices with the same view converge on the same master. A master that stops
// heartbeating drops out of every survivor's view via the timeout sweep, and
// each survivor re-derives the new master on its own.
package election

import (
    "edtsp/pkg/protocol"
)

// Transition describes a role change of the local device.
type Transition struct {
    From   protocol.Role
    To     protocol.Role
    Master uint32
}

// Engine holds the local election state. It is owned by one goroutine.
type Engine struct {
    self   uint32
    role   protocol.Role
    master uint32
    // masterChanged is set by the last Evaluate when the master id moved.
    masterChanged bool
}

// New returns an Engine for selfID with role Unknown.
func New(selfID uint32) *Engine {
    return &Engine{self: selfID, role: protocol.RoleUnknown}
}

// Elect returns the master among self and active: the numerically highest
// unsigned 32-bit id.
func Elect(self uint32, active []uint32) uint32 {
    best := self
    for _, id := range active {
        if id > best { best = id }
    }
    return best
}

// Evaluate recomputes the role from the active id set. It returns the
// transition and true exactly when the role differs from the previous one.
func (e *Engine) Evaluate(active []uint32) (Transition, bool) {
    master := Elect(e.self, active)
    next := protocol.RoleSlave
    if master == e.self { next = protocol.RoleMaster }

    e.masterChanged = master != e.master
    e.master = master
    if next == e.role {
        return Transition{}, false
    }
    t := Transition{From: e.role, To: next, Master: master}
    e.role = next
    return t, true
}

// MasterChanged reports whether the last Evaluate moved the master id, which
// can happen without a local role change (a slave seeing a new master).
func (e *Engine) MasterChanged() bool { return e.masterChanged }

func (e *Engine) SelfID() uint32      { return e.self }
func (e *Engine) Role() protocol.Role  { return e.role }
func (e *Engine) IsMaster() bool      { return e.role == protocol.RoleMaster }

// Master returns the master id from the last evaluation, 0 before the first.
func (e *Engine) Master() uint32 { return e.master }
