// Package execute runs the supervisor on a hart. A Runtime enters supervisor
// mode and comes back with the reason of the next trap; a Dispatcher handles
// that trap and decides whether the supervisor may continue.
package execute

import (
	"github.com/gosbi/gosbi/firmware/riscv"
	"github.com/gosbi/gosbi/firmware/trap"
)

// Switcher performs the switch into supervisor mode. Switch loads the
// supervisor context from f, runs the supervisor until it traps into machine
// mode and saves the context back into f. mcause and mtval describe the trap
// when it returns.
type Switcher interface {
	Switch(f *trap.Frame)
}

// State is what a Runtime is doing.
type State uint8

const (
	// Resuming: the supervisor owns the frame.
	Resuming State = iota

	// Dispatching: machine mode owns the frame and may change it.
	Dispatching

	// Halted: the hart hit a fatal trap and never resumes.
	Halted
)

func (s State) String() string {
	switch s {
	case Resuming:
		return "resuming"
	case Dispatching:
		return "dispatching"
	}
	return "halted"
}

// Runtime is the supervisor context of one hart.
type Runtime struct {
	hart     *riscv.Hart
	switcher Switcher
	frame    trap.Frame
	state    State
}

// New prepares the first entry of the supervisor on hart h: it starts at
// entry in supervisor mode with the hart id in a0 and opaque in a1. The
// steady-state trap vector is installed so that traps come back to the
// runtime.
func New(h *riscv.Hart, s Switcher, entry, opaque uintptr) *Runtime {
	rt := &Runtime{
		hart:     h,
		switcher: s,
		state:    Dispatching,
	}
	rt.frame.Mepc = entry
	// Machine interrupts stay masked while the frame is loaded; mret takes
	// MIE from MPIE once the hart is in supervisor mode.
	status := h.Mstatus.Get() &^ riscv.MSTATUS_MIE
	rt.frame.Mstatus = riscv.WithPreviousPrivilege(status, riscv.PrivSupervisor)
	rt.frame.SetA(0, uintptr(h.ID))
	rt.frame.SetA(1, opaque)
	trap.Steady.Install(h)
	return rt
}

// Resume runs the supervisor until its next trap into machine mode and
// returns what kind of trap it was. A halted runtime does not run the
// supervisor and always returns trap.Unexpected.
func (rt *Runtime) Resume() trap.Reason {
	if rt.state == Halted {
		return trap.Unexpected
	}
	rt.state = Resuming
	rt.switcher.Switch(&rt.frame)
	rt.state = Dispatching
	return trap.Classify(rt.hart.Mcause.Get())
}

// Context returns the saved supervisor context. It may only be used between
// the return of Resume and the next call.
func (rt *Runtime) Context() *trap.Frame {
	return &rt.frame
}

func (rt *Runtime) State() State {
	return rt.state
}

func (rt *Runtime) Hart() *riscv.Hart {
	return rt.hart
}

func (rt *Runtime) halt() {
	rt.state = Halted
}
