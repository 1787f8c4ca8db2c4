//go:build !unmatched

package board

import (
	"unsafe"

	"github.com/gosbi/gosbi/firmware/mmio"
	"github.com/gosbi/gosbi/firmware/sbi"
	"github.com/gosbi/gosbi/firmware/uart"
)

const (
	Name = "virt"

	// MaxHarts is the largest -smp value the firmware supports.
	MaxHarts = 8

	CLINTBase = 0x0200_0000
	UARTBase  = 0x1000_0000

	// TimebaseFrequency is the rate of mtime in Hz.
	TimebaseFrequency = 10_000_000

	// The SiFive test device powers off or resets the machine.
	testBase = 0x0010_0000

	testFail     = 0x3333
	testPass     = 0x5555
	testReset    = 0x7777
	testCodeBits = 16
)

// Console returns the first UART.
func Console() Device {
	return uart.NewNS16550A(unsafe.Pointer(uintptr(UARTBase)))
}

// Reset powers off or resets the machine through the test device.
var Reset sbi.ResetFunc = func(typ, reason uint32) sbi.Error {
	reg := mmio.Reg32(unsafe.Pointer(uintptr(testBase)), 0)
	switch {
	case typ != sbi.ResetShutdown:
		mmio.Store32(reg, testReset)
	case reason == sbi.ResetReasonSystemFailure:
		mmio.Store32(reg, 1<<testCodeBits|testFail)
	default:
		mmio.Store32(reg, testPass)
	}
	return sbi.ErrFailed
}
