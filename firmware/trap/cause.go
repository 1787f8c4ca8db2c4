package trap

import (
	"strconv"

	"github.com/gosbi/gosbi/firmware/riscv"
)

// Cause is a raw mcause value.
type Cause uintptr

const interruptBit = 1 << (riscv.XLEN - 1)

// Interrupt reports whether the trap was an interrupt rather than an
// exception.
func (c Cause) Interrupt() bool {
	return c&interruptBit != 0
}

// Code returns the exception or interrupt code.
func (c Cause) Code() uintptr {
	return uintptr(c &^ interruptBit)
}

func (c Cause) String() string {
	code := c.Code()
	if c.Interrupt() {
		switch code {
		case riscv.SupervisorSoftwareInterrupt:
			return "supervisor software interrupt"
		case riscv.MachineSoftwareInterrupt:
			return "machine software interrupt"
		case riscv.SupervisorTimerInterrupt:
			return "supervisor timer interrupt"
		case riscv.MachineTimerInterrupt:
			return "machine timer interrupt"
		case riscv.SupervisorExternalInterrupt:
			return "supervisor external interrupt"
		case riscv.MachineExternalInterrupt:
			return "machine external interrupt"
		}
		return "interrupt " + strconv.FormatUint(uint64(code), 10)
	}
	switch code {
	case riscv.InstructionAddressMisaligned:
		return "instruction address misaligned"
	case riscv.InstructionAccessFault:
		return "instruction access fault"
	case riscv.IllegalInstruction:
		return "illegal instruction"
	case riscv.Breakpoint:
		return "breakpoint"
	case riscv.LoadAddressMisaligned:
		return "load address misaligned"
	case riscv.LoadAccessFault:
		return "load access fault"
	case riscv.StoreAddressMisaligned:
		return "store address misaligned"
	case riscv.StoreAccessFault:
		return "store access fault"
	case riscv.UserEnvCall:
		return "environment call from U-mode"
	case riscv.SupervisorEnvCall:
		return "environment call from S-mode"
	case riscv.MachineEnvCall:
		return "environment call from M-mode"
	case riscv.InstructionPageFault:
		return "instruction page fault"
	case riscv.LoadPageFault:
		return "load page fault"
	case riscv.StorePageFault:
		return "store page fault"
	}
	return "exception " + strconv.FormatUint(uint64(code), 10)
}

// Reason is why the supervisor stopped running, as far as the firmware is
// concerned.
type Reason uint8

const (
	// Unexpected is any trap the delegation setup should have kept away from
	// machine mode. It cannot be handled.
	Unexpected Reason = iota
	EnvironmentCall
	IllegalInstruction
	MachineTimer
	MachineSoft
)

func (r Reason) String() string {
	switch r {
	case EnvironmentCall:
		return "environment call"
	case IllegalInstruction:
		return "illegal instruction"
	case MachineTimer:
		return "machine timer"
	case MachineSoft:
		return "machine soft"
	}
	return "unexpected"
}

// Classify maps an mcause value to a Reason.
func Classify(mcause uintptr) Reason {
	c := Cause(mcause)
	if c.Interrupt() {
		switch c.Code() {
		case riscv.MachineTimerInterrupt:
			return MachineTimer
		case riscv.MachineSoftwareInterrupt:
			return MachineSoft
		}
		return Unexpected
	}
	switch c.Code() {
	case riscv.SupervisorEnvCall:
		return EnvironmentCall
	case riscv.IllegalInstruction:
		return IllegalInstruction
	}
	return Unexpected
}
