// Package riscv describes the machine-level control state of one RISC-V hart:
// the control and status registers the firmware touches, their bit layout,
// and the few privileged instructions that are not register accesses.
//
// Firmware code never talks to the CPU directly. It goes through a Hart, which
// is bound to the real CSRs when built with TinyGo and to in-memory fakes in
// host tests (see package riscvtest).
package riscv

// Bits in mstatus. The S-level bits are also visible through sstatus.
const (
	MSTATUS_SIE  = 1 << 1
	MSTATUS_MIE  = 1 << 3
	MSTATUS_SPIE = 1 << 5
	MSTATUS_MPIE = 1 << 7
	MSTATUS_SPP  = 1 << 8
	MSTATUS_MPP  = 3 << 11
	MSTATUS_MPRV = 1 << 17

	MSTATUS_MPP_SHIFT = 11
	MSTATUS_SPP_SHIFT = 8
)

// Bits in mie. The same positions are used in mip, mideleg and sie/sip.
const (
	MIE_SSIE = 1 << 1
	MIE_MSIE = 1 << 3
	MIE_STIE = 1 << 5
	MIE_MTIE = 1 << 7
	MIE_SEIE = 1 << 9
	MIE_MEIE = 1 << 11
)

// Bits in mip.
const (
	MIP_SSIP = 1 << 1
	MIP_MSIP = 1 << 3
	MIP_STIP = 1 << 5
	MIP_MTIP = 1 << 7
	MIP_SEIP = 1 << 9
	MIP_MEIP = 1 << 11
)

// Interrupt codes, as found in the low bits of mcause when its top bit is set.
const (
	SupervisorSoftwareInterrupt = 1
	MachineSoftwareInterrupt    = 3
	SupervisorTimerInterrupt    = 5
	MachineTimerInterrupt       = 7
	SupervisorExternalInterrupt = 9
	MachineExternalInterrupt    = 11
)

// Exception codes, as found in mcause when its top bit is clear.
const (
	InstructionAddressMisaligned = 0
	InstructionAccessFault       = 1
	IllegalInstruction           = 2
	Breakpoint                   = 3
	LoadAddressMisaligned        = 4
	LoadAccessFault              = 5
	StoreAddressMisaligned       = 6
	StoreAccessFault             = 7
	UserEnvCall                  = 8
	SupervisorEnvCall            = 9
	MachineEnvCall               = 11
	InstructionPageFault         = 12
	LoadPageFault                = 13
	StorePageFault               = 15
)

// Privilege levels as encoded in mstatus.MPP.
const (
	PrivUser       = 0
	PrivSupervisor = 1
	PrivMachine    = 3
)

// PMP configuration bits for one entry.
const (
	PMP_CFG_R     = 1 << 0
	PMP_CFG_W     = 1 << 1
	PMP_CFG_X     = 1 << 2
	PMP_CFG_A_TOR = 1 << 3
	PMP_CFG_L     = 1 << 7
)

// XLEN of the supported harts.
const XLEN = 64

// Register is a single control and status register of the current hart.
//
// SetBits and ClearBits return the value the register held before the
// update, matching csrrs and csrrc.
type Register interface {
	Get() uintptr
	Set(value uintptr)
	SetBits(bitmask uintptr) (oldValue uintptr)
	ClearBits(bitmask uintptr) (oldValue uintptr)
}

// Instructions are the privileged operations that are not CSR accesses.
type Instructions interface {
	// WaitForInterrupt stalls the hart until an interrupt becomes pending.
	WaitForInterrupt()

	// FenceI synchronizes the instruction and data streams.
	FenceI()

	// SfenceVMA flushes all address translation caches of this hart.
	SfenceVMA()

	// LoadSupervisor32 reads 32 bits at a supervisor virtual address, using
	// the address translation of the trapped context (mstatus.MPRV).
	LoadSupervisor32(vaddr uintptr) uint32

	// LoadSupervisor64 is LoadSupervisor32 for a full machine word.
	LoadSupervisor64(vaddr uintptr) uint64

	// Halt stops the hart forever. On hardware it does not return.
	Halt()
}

// Hart is the machine-level view of one hart. Only the owning hart may use it.
type Hart struct {
	ID int

	Mstatus  Register
	Mie      Register
	Mip      Register
	Mideleg  Register
	Medeleg  Register
	Mtvec    Register
	Mscratch Register
	Mcause   Register
	Mtval    Register
	Pmpcfg0  Register
	Pmpaddr0 Register

	Stvec  Register
	Scause Register
	Stval  Register
	Sepc   Register

	Instructions
}

// PreviousPrivilege returns the privilege level saved in the MPP field of an
// mstatus value.
func PreviousPrivilege(mstatus uintptr) uintptr {
	return (mstatus & MSTATUS_MPP) >> MSTATUS_MPP_SHIFT
}

// WithPreviousPrivilege returns mstatus with MPP replaced by priv.
func WithPreviousPrivilege(mstatus, priv uintptr) uintptr {
	return mstatus&^MSTATUS_MPP | (priv<<MSTATUS_MPP_SHIFT)&MSTATUS_MPP
}
