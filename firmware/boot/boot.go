// Package boot brings the harts of the platform from reset to the point where
// they can run the supervisor.
//
// Every hart checks in on arrival. Hart 0 initializes the shared platform
// state while every other hart waits for a software interrupt. Once hart 0 is
// done it raises the software interrupt of every other hart that checked in,
// and from then on every hart configures its own delegation and enters the
// supervisor.
package boot

import (
	"errors"
	"fmt"
	"math/bits"
	"sync/atomic"

	"github.com/gosbi/gosbi/firmware/clint"
	"github.com/gosbi/gosbi/firmware/console"
	"github.com/gosbi/gosbi/firmware/ipi"
	"github.com/gosbi/gosbi/firmware/riscv"
	"github.com/gosbi/gosbi/firmware/sbi"
)

var (
	ErrNotPrimary   = errors.New("boot: not the primary hart")
	ErrPrimary      = errors.New("boot: primary hart cannot wait for itself")
	ErrTooManyHarts = errors.New("boot: hart id out of range")
)

// Platform is the state shared by all harts. It is built once, by hart 0,
// and read by all harts afterwards.
type Platform struct {
	Console *console.Console
	Clint   clint.Clint
	Mailbox *ipi.Mailbox

	// Harts is the largest number of harts the board can have, at most 64.
	// Which of them exist is learned at boot: see Online.
	Harts int

	// Settle is how long, in mtime ticks, hart 0 waits for the other harts
	// to check in before it initializes the platform. Zero does not wait.
	Settle uint64

	// Entry and Opaque are passed to the supervisor: it starts at Entry with
	// a0 = hart id and a1 = Opaque.
	Entry  uintptr
	Opaque uintptr

	HeapStart uintptr
	HeapEnd   uintptr

	Reset sbi.ResetFunc

	online   atomic.Uint64 // bit per hart that reached Primary or Secondary
	released atomic.Bool
}

func (p *Platform) checkIn(hart int) {
	for {
		old := p.online.Load()
		if p.online.CompareAndSwap(old, old|1<<uint(hart)) {
			return
		}
	}
}

// Online reports whether hart checked in at boot. A hart that never checks
// in does not exist on this machine.
func (p *Platform) Online(hart int) bool {
	return hart >= 0 && hart < 64 && p.online.Load()&(1<<uint(hart)) != 0
}

// OnlineHarts returns the number of harts that checked in.
func (p *Platform) OnlineHarts() int {
	return bits.OnesCount64(p.online.Load())
}

// settle waits until every hart has checked in or Settle ticks have passed.
func (p *Platform) settle() {
	all := ^uint64(0)
	if p.Harts < 64 {
		all = 1<<uint(p.Harts) - 1
	}
	start := p.Clint.Mtime()
	for p.online.Load() != all && p.Clint.Mtime()-start < p.Settle {
	}
}

// Evaluator returns the SBI call evaluator for hart h.
func (p *Platform) Evaluator(h *riscv.Hart) *sbi.Evaluator {
	return &sbi.Evaluator{
		Hart:    h,
		Clint:   p.Clint,
		Mailbox: p.Mailbox,
		Console: p.Console,
		Reset:   p.Reset,
		Online:  p.Online,
	}
}

// Step is one named part of the platform initialization.
type Step struct {
	Name string
	Run  func() error
}

// Primary runs the initialization steps in order on hart 0 and then wakes up
// all other online harts. Before the first step it gives the other harts
// Settle ticks to check in. It stops at the first step that fails, leaving
// the other harts asleep.
func Primary(p *Platform, h *riscv.Hart, steps []Step) error {
	if h.ID != 0 {
		return ErrNotPrimary
	}
	p.checkIn(0)
	p.settle()
	for _, step := range steps {
		if p.Console != nil {
			p.Console.Debugf("init %s", step.Name)
		}
		if err := step.Run(); err != nil {
			return fmt.Errorf("boot: %s: %w", step.Name, err)
		}
	}
	p.released.Store(true)
	online := p.online.Load()
	for hart := 1; hart < p.Harts; hart++ {
		if online&(1<<uint(hart)) != 0 {
			p.Clint.SendSoft(hart)
		}
	}
	return nil
}

// DisarmTimers pushes the timer compare value of every online hart to the end
// of time, so no machine timer interrupt is pending before the supervisor
// programs its first timer. The CLINT does not reset mtimecmp.
func DisarmTimers(p *Platform) error {
	for hart := 0; hart < p.Harts; hart++ {
		if p.Online(hart) {
			p.Clint.SetTimer(hart, ^uint64(0))
		}
	}
	return nil
}

// Secondary checks hart h in and parks it until hart 0 has initialized the
// platform. A hart that checks in after that does not wait.
//
// Only the machine software interrupt is enabled while waiting. Interrupts
// are globally off in machine mode, so the interrupt ends the wfi without
// trapping.
func Secondary(p *Platform, h *riscv.Hart) error {
	switch {
	case h.ID == 0:
		return ErrPrimary
	case h.ID >= p.Harts:
		return ErrTooManyHarts
	}

	p.Clint.ClearSoft(h.ID)
	p.checkIn(h.ID)
	savedMIE := h.Mie.Get()
	h.Mie.Set(riscv.MIE_MSIE)
	for h.Mip.Get()&riscv.MIP_MSIP == 0 && !p.released.Load() {
		h.WaitForInterrupt()
	}
	h.Mie.Set(savedMIE)
	p.Clint.ClearSoft(h.ID)
	return nil
}
