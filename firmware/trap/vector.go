package trap

import "github.com/gosbi/gosbi/firmware/riscv"

// Vector is a machine trap entry point.
type Vector struct {
	name  string
	entry uintptr

	// stackTop, if set, returns the machine stack the vector switches to for
	// a hart. It is passed to the entry code through mscratch.
	stackTop func(hart int) uintptr
}

func (v Vector) String() string {
	return v.name
}

// Entry returns the address written to mtvec.
func (v Vector) Entry() uintptr {
	// Direct mode: the two low bits of mtvec select the mode and must be 0.
	return v.entry &^ 3
}

// Install makes v the trap vector of hart h.
func (v Vector) Install(h *riscv.Hart) {
	if v.stackTop != nil {
		h.Mscratch.Set(v.stackTop(h.ID))
	}
	h.Mtvec.Set(v.Entry())
}

// Installed reports whether v is the current trap vector of hart h.
func (v Vector) Installed(h *riscv.Hart) bool {
	return h.Mtvec.Get()&^3 == v.Entry()
}

// TakeOver makes the early vector the handler of every trap on hart h and
// masks machine interrupts, undoing the interrupt setup of the TinyGo runtime.
// From here on machine mode is only entered through a fault, and any fault is
// reported by the early vector.
func TakeOver(h *riscv.Hart) {
	h.Mstatus.ClearBits(riscv.MSTATUS_MIE)
	h.Mie.ClearBits(riscv.MIE_MTIE)
	Early.Install(h)
}
