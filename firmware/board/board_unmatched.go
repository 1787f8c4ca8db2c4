//go:build unmatched

package board

import (
	"unsafe"

	"github.com/gosbi/gosbi/firmware/sbi"
	"github.com/gosbi/gosbi/firmware/uart"
)

const (
	Name = "unmatched"

	// One S7 monitor core and four U74 application cores.
	MaxHarts = 5

	CLINTBase = 0x0200_0000
	UARTBase  = 0x1001_0000

	// TimebaseFrequency is the rate of mtime in Hz.
	TimebaseFrequency = 1_000_000
)

// Console returns UART0, set up by the previous boot stage.
func Console() Device {
	return uart.NewSiFive(unsafe.Pointer(uintptr(UARTBase)))
}

// Reset is not available: the board is powered off through the PMIC, which
// the firmware does not drive.
var Reset sbi.ResetFunc
