//go:build tinygo.riscv64

package trap

import (
	"unsafe"

	"github.com/gosbi/gosbi/firmware/board"
	"github.com/gosbi/gosbi/firmware/riscv"
)

// Symbols defined in targets/gosbi-trap.S and targets/gosbi.ld.

//go:extern sbi_early_trap
var earlyTrapSymbol [0]uintptr

//go:extern sbi_trap_entry
var trapEntrySymbol [0]uintptr

//go:extern _gosbi_stacks_start
var stacksStartSymbol [0]byte

var (
	// Early is in place from the reset vector until the runtime of the hart
	// takes over. Any trap it catches is fatal.
	Early = Vector{
		name:     "early",
		entry:    uintptr(unsafe.Pointer(&earlyTrapSymbol)),
		stackTop: stackTop,
	}

	// Steady is the vector of a running runtime. It saves the supervisor
	// registers into the runtime's frame and returns into the Go code that
	// resumed the supervisor.
	Steady = Vector{
		name:  "steady",
		entry: uintptr(unsafe.Pointer(&trapEntrySymbol)),
	}
)

// The boot stack of each hart, as set up by the reset vector.
func stackTop(hart int) uintptr {
	return uintptr(unsafe.Pointer(&stacksStartSymbol)) + uintptr(hart+1)*board.StackSize
}

// The TinyGo runtime points mtvec at its own handler before it sets up the
// heap and runs the package initializers. This package has few dependencies,
// so its initializer runs early and hands faults in the rest of the bring-up
// to the early vector. Only hart 0 runs initializers.
func init() {
	TakeOver(riscv.Current())
}
