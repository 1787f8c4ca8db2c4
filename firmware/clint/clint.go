// Package clint drives the SiFive Core-Local Interruptor: the global mtime
// counter, one mtimecmp register per hart and one software interrupt (msip)
// word per hart.
//
// The RISC-V ACLINT is backwards compatible with this layout.
package clint

import (
	"unsafe"

	"github.com/gosbi/gosbi/firmware/mmio"
)

// Register offsets from the CLINT base.
const (
	MSIP     = 0x0000 // 4 bytes per hart
	MTIMECMP = 0x4000 // 8 bytes per hart
	MTIME    = 0xbff8

	// Size is the extent of the register file.
	Size = 0xc000
)

// Clint is a handle to the controller. It holds no state besides the base
// address, so copies may be shared freely between harts.
//
// Passing a hart id outside of the platform's hart range is a programming
// error; the access lands on an unrelated register.
type Clint struct {
	base unsafe.Pointer
}

// New returns a handle for the controller mapped at base.
func New(base unsafe.Pointer) Clint {
	return Clint{base: base}
}

// Mtime reads the free-running global timer.
func (c Clint) Mtime() uint64 {
	return mmio.Load64(mmio.Reg64(c.base, MTIME))
}

// SetTimer programs the timer compare value of the given hart. The hart sees
// a machine timer interrupt while mtime >= instant.
func (c Clint) SetTimer(hart int, instant uint64) {
	mmio.Store64(mmio.Reg64(c.base, MTIMECMP+8*uintptr(hart)), instant)
}

// Timer returns the timer compare value of the given hart.
func (c Clint) Timer(hart int) uint64 {
	return mmio.Load64(mmio.Reg64(c.base, MTIMECMP+8*uintptr(hart)))
}

// SendSoft raises the software interrupt of the given hart.
func (c Clint) SendSoft(hart int) {
	mmio.Store32(mmio.Reg32(c.base, MSIP+4*uintptr(hart)), 1)
}

// ClearSoft lowers the software interrupt of the given hart.
func (c Clint) ClearSoft(hart int) {
	mmio.Store32(mmio.Reg32(c.base, MSIP+4*uintptr(hart)), 0)
}

// SoftPending reports whether the software interrupt of the given hart is
// raised. Any nonzero msip value counts as pending.
func (c Clint) SoftPending(hart int) bool {
	return mmio.Load32(mmio.Reg32(c.base, MSIP+4*uintptr(hart))) != 0
}
