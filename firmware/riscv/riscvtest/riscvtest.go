// Package riscvtest provides in-memory stand-ins for the CSRs and privileged
// instructions of a hart, for testing firmware code on the host.
package riscvtest

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gosbi/gosbi/firmware/riscv"
)

// Reg is a fake CSR backed by a machine word.
type Reg struct {
	v atomic.Uintptr

	// Extra, if set, is ORed into every Get. It models bits that other
	// hardware drives, like mip.MSIP following the CLINT.
	Extra func() uintptr
}

func (r *Reg) Get() uintptr {
	v := r.v.Load()
	if r.Extra != nil {
		v |= r.Extra()
	}
	return v
}

func (r *Reg) Set(value uintptr) {
	r.v.Store(value)
}

func (r *Reg) SetBits(mask uintptr) uintptr {
	for {
		old := r.v.Load()
		if r.v.CompareAndSwap(old, old|mask) {
			return old
		}
	}
}

func (r *Reg) ClearBits(mask uintptr) uintptr {
	for {
		old := r.v.Load()
		if r.v.CompareAndSwap(old, old&^mask) {
			return old
		}
	}
}

// Machine records the privileged instructions a hart executed.
type Machine struct {
	lock sync.Mutex

	// Memory is the supervisor's view of memory, keyed by virtual address.
	// Missing addresses read as zero.
	Memory map[uintptr]uint64

	// OnWait runs on every WaitForInterrupt.
	OnWait func()

	waits      atomic.Int64
	fenceIs    atomic.Int64
	sfenceVMAs atomic.Int64
	halted     atomic.Bool
}

func (m *Machine) WaitForInterrupt() {
	m.waits.Add(1)
	if m.OnWait != nil {
		m.OnWait()
	} else {
		runtime.Gosched()
	}
}

func (m *Machine) FenceI()    { m.fenceIs.Add(1) }
func (m *Machine) SfenceVMA() { m.sfenceVMAs.Add(1) }

func (m *Machine) LoadSupervisor32(vaddr uintptr) uint32 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return uint32(m.Memory[vaddr])
}

func (m *Machine) LoadSupervisor64(vaddr uintptr) uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.Memory[vaddr]
}

// Store writes supervisor memory for later LoadSupervisor calls.
func (m *Machine) Store(vaddr uintptr, value uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.Memory == nil {
		m.Memory = make(map[uintptr]uint64)
	}
	m.Memory[vaddr] = value
}

// Halt marks the hart as halted. Unlike hardware it returns, so callers
// must not rely on it to stop control flow.
func (m *Machine) Halt() { m.halted.Store(true) }

func (m *Machine) Waits() int      { return int(m.waits.Load()) }
func (m *Machine) FenceIs() int    { return int(m.fenceIs.Load()) }
func (m *Machine) SfenceVMAs() int { return int(m.sfenceVMAs.Load()) }
func (m *Machine) Halted() bool    { return m.halted.Load() }

// NewHart returns a hart with every CSR backed by a fresh Reg.
func NewHart(id int) (*riscv.Hart, *Machine) {
	m := &Machine{}
	h := &riscv.Hart{
		ID:       id,
		Mstatus:  &Reg{},
		Mie:      &Reg{},
		Mip:      &Reg{},
		Mideleg:  &Reg{},
		Medeleg:  &Reg{},
		Mtvec:    &Reg{},
		Mscratch: &Reg{},
		Mcause:   &Reg{},
		Mtval:    &Reg{},
		Pmpcfg0:  &Reg{},
		Pmpaddr0: &Reg{},
		Stvec:    &Reg{},
		Scause:   &Reg{},
		Stval:    &Reg{},
		Sepc:     &Reg{},

		Instructions: m,
	}
	return h, m
}

// R returns the fake behind a register of a hart made by NewHart.
func R(r riscv.Register) *Reg {
	return r.(*Reg)
}
