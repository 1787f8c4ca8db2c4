//go:build tinygo.riscv64

package execute

import (
	_ "unsafe"

	"github.com/gosbi/gosbi/firmware/trap"
)

// Implemented in targets/gosbi-trap.S. It returns when sbi_trap_entry has
// saved the supervisor context.
//
//go:linkname resume sbi_resume
func resume(f *trap.Frame)

type machineSwitcher struct{}

func (machineSwitcher) Switch(f *trap.Frame) {
	resume(f)
}

// Machine switches to supervisor mode on the current hart with mret.
var Machine Switcher = machineSwitcher{}
