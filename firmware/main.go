//go:build tinygo.riscv64

// Command firmware is the gosbi machine-mode firmware image. Build it with
//
//	gosbi build -board virt
//
// which runs TinyGo with targets/gosbi-virt.json.
package main

import (
	"errors"
	"unsafe"

	"github.com/gosbi/gosbi/firmware/board"
	"github.com/gosbi/gosbi/firmware/boot"
	"github.com/gosbi/gosbi/firmware/clint"
	"github.com/gosbi/gosbi/firmware/console"
	"github.com/gosbi/gosbi/firmware/execute"
	"github.com/gosbi/gosbi/firmware/ipi"
	"github.com/gosbi/gosbi/firmware/riscv"
	"github.com/gosbi/gosbi/firmware/trap"
)

// Set by targets/gosbi-entry.S and targets/gosbi.ld.

//go:extern sbi_boot_opaque
var bootOpaque uintptr

//go:extern _heap_start
var heapStartSymbol [0]byte

//go:extern _heap_end
var heapEndSymbol [0]byte

// Secondary harts read Clint and Harts before hart 0 has initialized
// anything, so both are static.
var platform = boot.Platform{
	Clint:  clint.New(unsafe.Pointer(uintptr(board.CLINTBase))),
	Harts:  board.MaxHarts,
	Settle: board.SettleTicks,
	Entry:  board.SupervisorEntry,
	Reset:  board.Reset,
}

// Heap allocation is not safe across harts. Every hart takes this lock while
// building its runtime.
var allocLock console.SpinLock

var errHeapTooSmall = errors.New("heap smaller than configured")

// main runs on hart 0 after the TinyGo runtime has cleared .bss and run the
// package initializers.
func main() {
	h := riscv.Current()
	trap.TakeOver(h)
	err := boot.Primary(&platform, h, []boot.Step{
		{Name: "console", Run: initConsole},
		{Name: "timer", Run: func() error { return boot.DisarmTimers(&platform) }},
		{Name: "mailbox", Run: initMailbox},
		{Name: "heap", Run: initHeap},
		{Name: "banner", Run: banner},
	})
	if err != nil {
		earlySink{}.Emergency("gosbi: boot failed: " + err.Error() + "\n")
		h.Halt()
	}
	enterSupervisor(h)
}

func initConsole() error {
	dev := board.Console()
	platform.Console = console.New(dev, dev)
	return nil
}

func initMailbox() error {
	platform.Mailbox = ipi.NewMailbox(platform.Clint, platform.Harts)
	return nil
}

func initHeap() error {
	platform.HeapStart = uintptr(unsafe.Pointer(&heapStartSymbol))
	platform.HeapEnd = uintptr(unsafe.Pointer(&heapEndSymbol))
	if platform.HeapEnd-platform.HeapStart < board.HeapSize {
		return errHeapTooSmall
	}
	return nil
}

func banner() error {
	platform.Opaque = bootOpaque
	c := platform.Console
	c.Infof("gosbi on %s, %d of %d harts online", board.Name, platform.OnlineHarts(), platform.Harts)
	c.Infof("supervisor entry %#x, opaque %#x", platform.Entry, platform.Opaque)
	c.Infof("heap %#x-%#x", platform.HeapStart, platform.HeapEnd)
	c.Infof("mideleg %#x, medeleg %#x", boot.DelegatedInterrupts, boot.DelegatedExceptions)
	return nil
}

// secondaryMain is where the reset vector sends all harts but hart 0.
//
//export sbi_secondary_main
func secondaryMain() {
	h := riscv.Current()
	trap.TakeOver(h)
	if err := boot.Secondary(&platform, h); err != nil {
		// Harts beyond board.MaxHarts stay parked.
		h.Halt()
	}
	enterSupervisor(h)
}

func enterSupervisor(h *riscv.Hart) {
	boot.Delegate(h)
	boot.OpenPMP(h)

	allocLock.Lock()
	rt := execute.New(h, execute.Machine, platform.Entry, platform.Opaque)
	d := &execute.Dispatcher{
		Hart:      h,
		Clint:     platform.Clint,
		Mailbox:   platform.Mailbox,
		Evaluator: platform.Evaluator(h),
		Console:   platform.Console,
	}
	allocLock.Unlock()

	platform.Console.Debugf("hart %d entering supervisor", h.ID)
	execute.Run(rt, d)
	h.Halt()
}

// earlyFail is jumped to by sbi_early_trap.
//
//export sbi_early_fail
func earlyFail(f *trap.Frame) {
	trap.EarlyFail(riscv.Current(), f, earlySink{})
}

// earlySink prints through the console once it exists and straight to the
// UART before that.
type earlySink struct{}

func (earlySink) Emergency(line string) {
	if platform.Console != nil {
		platform.Console.Emergency(line)
		return
	}
	dev := board.Console()
	for i := 0; i < len(line); i++ {
		if line[i] == '\n' {
			dev.WriteByte('\r')
		}
		dev.WriteByte(line[i])
	}
}
