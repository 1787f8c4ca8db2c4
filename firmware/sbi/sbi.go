// Package sbi evaluates the Supervisor Binary Interface calls made by the
// supervisor through ecall.
//
// Supported are the Base extension, the legacy extensions, and the TIME, IPI,
// RFENCE and SRST extensions. RFENCE requests are served with full flushes.
package sbi

import (
	"github.com/gosbi/gosbi/firmware/clint"
	"github.com/gosbi/gosbi/firmware/console"
	"github.com/gosbi/gosbi/firmware/ipi"
	"github.com/gosbi/gosbi/firmware/riscv"
)

// Error is an SBI status code, returned to the supervisor in a0.
type Error int

const (
	Success             Error = 0
	ErrFailed           Error = -1
	ErrNotSupported     Error = -2
	ErrInvalidParam     Error = -3
	ErrDenied           Error = -4
	ErrInvalidAddress   Error = -5
	ErrAlreadyAvailable Error = -6
)

func (e Error) Error() string {
	switch e {
	case Success:
		return "success"
	case ErrFailed:
		return "failed"
	case ErrNotSupported:
		return "not supported"
	case ErrInvalidParam:
		return "invalid parameter"
	case ErrDenied:
		return "denied"
	case ErrInvalidAddress:
		return "invalid address"
	case ErrAlreadyAvailable:
		return "already available"
	}
	return "unknown error"
}

// Ret is the result of a call: Error goes to a0, Value to a1.
type Ret struct {
	Error uintptr
	Value uintptr
}

func ok(value uintptr) Ret {
	return Ret{Error: uintptr(Success), Value: value}
}

func fail(err Error) Ret {
	return Ret{Error: uintptr(err)}
}

// legacy calls return their result in a0 only.
func legacy(value uintptr) Ret {
	return Ret{Error: value}
}

// Extension ids.
const (
	ExtLegacySetTimer            = 0x00
	ExtLegacyConsolePutchar      = 0x01
	ExtLegacyConsoleGetchar      = 0x02
	ExtLegacyClearIPI            = 0x03
	ExtLegacySendIPI             = 0x04
	ExtLegacyRemoteFenceI        = 0x05
	ExtLegacyRemoteSfenceVMA     = 0x06
	ExtLegacyRemoteSfenceVMAASID = 0x07
	ExtLegacyShutdown            = 0x08

	ExtBase   = 0x10
	ExtTime   = 0x54494D45 // "TIME"
	ExtIPI    = 0x735049   // "sPI"
	ExtRfence = 0x52464E43 // "RFNC"
	ExtSrst   = 0x53525354 // "SRST"
)

// Base extension functions.
const (
	baseGetSpecVersion = 0
	baseGetImplID      = 1
	baseGetImplVersion = 2
	baseProbeExtension = 3
	baseGetMvendorid   = 4
	baseGetMarchid     = 5
	baseGetMimpid      = 6
)

const (
	// SpecVersion is SBI v0.2: major in bits 30:24, minor in bits 23:0.
	SpecVersion = 0<<24 | 2

	// ImplID is not a registered implementation id.
	ImplID      = 0x676f
	ImplVersion = 0x0001_0000
)

// System reset types and reasons of the SRST extension.
const (
	ResetShutdown   = 0
	ResetColdReboot = 1
	ResetWarmReboot = 2

	ResetReasonNone          = 0
	ResetReasonSystemFailure = 1
)

// ResetFunc resets or powers off the system. It only returns if the reset
// could not be performed.
type ResetFunc func(typ, reason uint32) Error

// Evaluator serves the calls of one hart.
type Evaluator struct {
	Hart    *riscv.Hart
	Clint   clint.Clint
	Mailbox *ipi.Mailbox
	Console *console.Console

	// Reset is the board's reset hook. Without it SRST is not offered.
	Reset ResetFunc

	// Online reports whether a hart came up at boot. Nil means every hart
	// the mailbox serves is online.
	Online func(hart int) bool
}

// Ecall evaluates one call.
func (e *Evaluator) Ecall(ext, fid uintptr, args [6]uintptr) Ret {
	switch ext {
	case ExtBase:
		return e.base(fid, args)
	case ExtTime:
		if fid != 0 {
			return fail(ErrNotSupported)
		}
		return e.setTimer(uint64(args[0]))
	case ExtIPI:
		if fid != 0 {
			return fail(ErrNotSupported)
		}
		return fail(e.send(args[0], args[1], ipi.MsgSoft))
	case ExtRfence:
		return e.rfence(fid, args)
	case ExtSrst:
		if fid != 0 {
			return fail(ErrNotSupported)
		}
		return e.reset(args[0], args[1])
	case ExtLegacySetTimer:
		e.setTimer(uint64(args[0]))
		return legacy(0)
	case ExtLegacyConsolePutchar:
		e.Console.WriteByte(byte(args[0]))
		return legacy(0)
	case ExtLegacyConsoleGetchar:
		c, err := e.Console.ReadByte()
		if err != nil {
			return legacy(^uintptr(0))
		}
		return legacy(uintptr(c))
	case ExtLegacyClearIPI:
		e.Hart.Mip.ClearBits(riscv.MIP_SSIP)
		return legacy(0)
	case ExtLegacySendIPI:
		return legacy(uintptr(e.sendLegacy(args[0], ipi.MsgSoft)))
	case ExtLegacyRemoteFenceI:
		return legacy(uintptr(e.sendLegacy(args[0], ipi.MsgFenceI)))
	case ExtLegacyRemoteSfenceVMA, ExtLegacyRemoteSfenceVMAASID:
		return legacy(uintptr(e.sendLegacy(args[0], ipi.MsgSfenceVMA)))
	case ExtLegacyShutdown:
		return legacy(uintptr(e.reset(ResetShutdown, ResetReasonNone).Error))
	}
	return fail(ErrNotSupported)
}

func (e *Evaluator) base(fid uintptr, args [6]uintptr) Ret {
	switch fid {
	case baseGetSpecVersion:
		return ok(SpecVersion)
	case baseGetImplID:
		return ok(ImplID)
	case baseGetImplVersion:
		return ok(ImplVersion)
	case baseProbeExtension:
		if e.Probe(args[0]) {
			return ok(1)
		}
		return ok(0)
	case baseGetMvendorid, baseGetMarchid, baseGetMimpid:
		return ok(0)
	}
	return fail(ErrNotSupported)
}

// Probe reports whether the extension ext is available.
func (e *Evaluator) Probe(ext uintptr) bool {
	switch ext {
	case ExtBase, ExtTime, ExtIPI, ExtRfence:
		return true
	case ExtSrst, ExtLegacyShutdown:
		return e.Reset != nil
	case ExtLegacySetTimer, ExtLegacyConsolePutchar, ExtLegacyConsoleGetchar,
		ExtLegacyClearIPI, ExtLegacySendIPI, ExtLegacyRemoteFenceI,
		ExtLegacyRemoteSfenceVMA, ExtLegacyRemoteSfenceVMAASID:
		return true
	}
	return false
}

// setTimer programs the next supervisor timer event. The pending supervisor
// timer interrupt is withdrawn and machine timer interrupts are enabled
// again, so the next expiry is forwarded as a new STIP.
func (e *Evaluator) setTimer(instant uint64) Ret {
	e.Clint.SetTimer(e.Hart.ID, instant)
	e.Hart.Mip.ClearBits(riscv.MIP_STIP)
	e.Hart.Mie.SetBits(riscv.MIE_MTIE)
	return ok(0)
}

func (e *Evaluator) rfence(fid uintptr, args [6]uintptr) Ret {
	switch fid {
	case 0: // remote_fence_i
		return fail(e.send(args[0], args[1], ipi.MsgFenceI))
	case 1, 2: // remote_sfence_vma, remote_sfence_vma_asid
		return fail(e.send(args[0], args[1], ipi.MsgSfenceVMA))
	}
	return fail(ErrNotSupported)
}

// send posts msg to every hart in the mask. A base of -1 selects all online
// harts. Nothing is sent if the mask names a hart that does not exist or never
// came up.
func (e *Evaluator) send(mask, base uintptr, msg ipi.Message) Error {
	harts := uintptr(e.Mailbox.Harts())
	if base == ^uintptr(0) {
		for hart := uintptr(0); hart < harts; hart++ {
			if e.online(int(hart)) {
				e.Mailbox.Send(int(hart), msg)
			}
		}
		return Success
	}
	for i := uintptr(0); i < riscv.XLEN; i++ {
		if mask&(1<<i) == 0 {
			continue
		}
		if base >= harts || i >= harts-base || !e.online(int(base+i)) {
			return ErrInvalidParam
		}
	}
	for i := uintptr(0); i < riscv.XLEN; i++ {
		if mask&(1<<i) != 0 {
			e.Mailbox.Send(int(base+i), msg)
		}
	}
	return Success
}

func (e *Evaluator) online(hart int) bool {
	return e.Online == nil || e.Online(hart)
}

// sendLegacy sends to the harts in the mask stored at the supervisor address
// maskAddr. A null address selects all harts.
func (e *Evaluator) sendLegacy(maskAddr uintptr, msg ipi.Message) Error {
	if maskAddr == 0 {
		return e.send(0, ^uintptr(0), msg)
	}
	mask := uintptr(e.Hart.LoadSupervisor64(maskAddr))
	return e.send(mask, 0, msg)
}

func (e *Evaluator) reset(typ, reason uintptr) Ret {
	if e.Reset == nil {
		return fail(ErrNotSupported)
	}
	switch typ {
	case ResetShutdown, ResetColdReboot, ResetWarmReboot:
	default:
		return fail(ErrInvalidParam)
	}
	switch reason {
	case ResetReasonNone, ResetReasonSystemFailure:
	default:
		return fail(ErrInvalidParam)
	}
	return fail(e.Reset(uint32(typ), uint32(reason)))
}
