//go:build !tinygo.riscv64

package console

import "runtime"

func spinLoopHint() {
	runtime.Gosched()
}
