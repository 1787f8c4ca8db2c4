// Package board holds the constants of the machine the firmware is built for.
// The default is the QEMU virt machine; build with -tags=unmatched for the
// SiFive HiFive Unmatched.
package board

import "io"

// Memory layout shared by all boards.
const (
	// FirmwareBase is where the firmware image is loaded.
	FirmwareBase = 0x8000_0000

	// SupervisorEntry is where the next stage is loaded, 2 MiB after the
	// firmware.
	SupervisorEntry = 0x8020_0000

	// StackSize is the machine stack of each hart.
	StackSize = 16 * 1024

	// HeapSize is the firmware heap.
	HeapSize = 64 * 1024

	// SettleTicks is how long hart 0 waits for the other harts to come up,
	// 10ms.
	SettleTicks = TimebaseFrequency / 100
)

// Device is a console the firmware can print to and read from.
type Device interface {
	io.Writer
	io.ByteWriter
	io.ByteReader
}
