//go:build tinygo.riscv64

package console

import "device/riscv"

// Hint to the CPU that this hart is just waiting.
func spinLoopHint() {
	riscv.Asm("pause")
}
