package execute

import (
	"github.com/gosbi/gosbi/firmware/clint"
	"github.com/gosbi/gosbi/firmware/ipi"
	"github.com/gosbi/gosbi/firmware/riscv"
	"github.com/gosbi/gosbi/firmware/sbi"
	"github.com/gosbi/gosbi/firmware/trap"
)

// Evaluator serves SBI calls.
type Evaluator interface {
	Ecall(ext, fid uintptr, args [6]uintptr) sbi.Ret
}

// Dispatcher handles the traps of one hart.
type Dispatcher struct {
	Hart      *riscv.Hart
	Clint     clint.Clint
	Mailbox   *ipi.Mailbox
	Evaluator Evaluator

	// Console receives the report of a fatal trap.
	Console trap.Sink
}

// Dispatch handles a trap the runtime returned with. On return the frame is
// ready for the next Resume, unless the trap was fatal: then the runtime is
// halted and so is the hart.
func (d *Dispatcher) Dispatch(rt *Runtime, reason trap.Reason) {
	if rt.State() == Halted {
		return
	}
	f := rt.Context()
	switch reason {
	case trap.EnvironmentCall:
		d.ecall(f)
	case trap.IllegalInstruction:
		d.illegalInstruction(rt, f)
	case trap.MachineTimer:
		// Forward the timer to the supervisor, and keep the machine timer off
		// until the supervisor sets the next one.
		d.Hart.Mip.SetBits(riscv.MIP_STIP)
		d.Hart.Mie.ClearBits(riscv.MIE_MTIE)
	case trap.MachineSoft:
		d.soft()
	default:
		d.fatal(rt, trap.KindUnexpected, 0)
	}
}

// ecall passes a7 (extension), a6 (function) and a0-a5 to the evaluator and
// returns its result in a0 and a1, after the ecall instruction.
func (d *Dispatcher) ecall(f *trap.Frame) {
	var args [6]uintptr
	for i := range args {
		args[i] = f.A(i)
	}
	ret := d.Evaluator.Ecall(f.A(7), f.A(6), args)
	f.SetA(0, ret.Error)
	f.SetA(1, ret.Value)
	f.Mepc += 4
}

func (d *Dispatcher) illegalInstruction(rt *Runtime, f *trap.Frame) {
	insn := d.Hart.LoadSupervisor32(f.Mepc)
	if insn&3 != 3 {
		// Compressed, only the low half is the instruction.
		insn &= 0xffff
	}
	for _, emulate := range emulators {
		if emulate(d, f, insn) {
			return
		}
	}
	if kind := d.transfer(f, insn); kind != "" {
		d.fatal(rt, kind, insn)
	}
}

// transfer rewrites the frame so that the supervisor takes the illegal
// instruction exception itself, as if it had been delegated. It returns the
// kind of fatal report to make if that is not possible.
func (d *Dispatcher) transfer(f *trap.Frame, insn uint32) string {
	prev := riscv.PreviousPrivilege(f.Mstatus)
	if prev == riscv.PrivMachine {
		return trap.KindIllegal
	}
	if d.Hart.Medeleg.Get()&(1<<riscv.IllegalInstruction) != 0 {
		return trap.KindIllegal
	}
	// Vectored mode only matters for interrupts.
	stvec := d.Hart.Stvec.Get() &^ 3
	if stvec == f.Mepc {
		return trap.KindLoop
	}

	d.Hart.Scause.Set(riscv.IllegalInstruction)
	d.Hart.Stval.Set(uintptr(insn))
	d.Hart.Sepc.Set(f.Mepc)

	mstatus := f.Mstatus &^ (riscv.MSTATUS_SPP | riscv.MSTATUS_SPIE)
	mstatus |= (prev & 1) << riscv.MSTATUS_SPP_SHIFT
	if f.Mstatus&riscv.MSTATUS_SIE != 0 {
		mstatus |= riscv.MSTATUS_SPIE
	}
	mstatus &^= riscv.MSTATUS_SIE
	f.Mstatus = riscv.WithPreviousPrivilege(mstatus, riscv.PrivSupervisor)
	f.Mepc = stvec
	return ""
}

// soft acts on the messages other harts left for this one.
func (d *Dispatcher) soft() {
	msg := d.Mailbox.Receive(d.Hart.ID)
	if msg&ipi.MsgSoft != 0 {
		d.Hart.Mip.SetBits(riscv.MIP_SSIP)
	}
	if msg&ipi.MsgFenceI != 0 {
		d.Hart.FenceI()
	}
	if msg&ipi.MsgSfenceVMA != 0 {
		d.Hart.SfenceVMA()
	}
}

// fatal reports the trap and stops the hart for good.
func (d *Dispatcher) fatal(rt *Runtime, kind string, insn uint32) {
	r := trap.Report{
		Hart:   d.Hart.ID,
		Kind:   kind,
		Mcause: d.Hart.Mcause.Get(),
		Mtval:  d.Hart.Mtval.Get(),
		Insn:   insn,
		Frame:  *rt.Context(),
	}
	rt.halt()
	d.Console.Emergency(r.String())
	d.Hart.Halt()
}

// Run resumes the supervisor and dispatches its traps until a fatal trap
// halts the hart. On hardware it never returns.
func Run(rt *Runtime, d *Dispatcher) {
	for rt.State() != Halted {
		d.Dispatch(rt, rt.Resume())
	}
}
