package boot

import "github.com/gosbi/gosbi/firmware/riscv"

const (
	// DelegatedInterrupts go straight to the supervisor.
	DelegatedInterrupts = riscv.MIP_SSIP | riscv.MIP_STIP | riscv.MIP_SEIP

	// DelegatedExceptions go straight to the supervisor. Illegal instructions
	// and supervisor ecalls are missing: the firmware emulates the former and
	// serves the latter.
	DelegatedExceptions = 1<<riscv.InstructionAddressMisaligned |
		1<<riscv.InstructionAccessFault |
		1<<riscv.Breakpoint |
		1<<riscv.LoadAddressMisaligned |
		1<<riscv.LoadAccessFault |
		1<<riscv.StoreAddressMisaligned |
		1<<riscv.StoreAccessFault |
		1<<riscv.UserEnvCall |
		1<<riscv.InstructionPageFault |
		1<<riscv.LoadPageFault |
		1<<riscv.StorePageFault

	// EnabledInterrupts are taken in machine mode. The machine timer is
	// enabled only once the supervisor has programmed a timer.
	EnabledInterrupts = riscv.MIE_MEIE | riscv.MIE_MSIE
)

// Delegate sets up which traps of hart h the supervisor handles itself.
// Machine interrupts stay globally masked in machine mode: they are only
// taken while the supervisor runs.
func Delegate(h *riscv.Hart) {
	h.Mstatus.ClearBits(riscv.MSTATUS_MIE)
	h.Mideleg.Set(DelegatedInterrupts)
	h.Medeleg.Set(DelegatedExceptions)
	h.Mie.ClearBits(riscv.MIE_MTIE)
	h.Mie.SetBits(EnabledInterrupts)
}

// OpenPMP gives supervisor and user mode access to the whole address space
// with a single top-of-range entry.
func OpenPMP(h *riscv.Hart) {
	h.Pmpaddr0.Set(^uintptr(0) >> 2)
	h.Pmpcfg0.Set(riscv.PMP_CFG_R | riscv.PMP_CFG_W | riscv.PMP_CFG_X | riscv.PMP_CFG_A_TOR)
}
