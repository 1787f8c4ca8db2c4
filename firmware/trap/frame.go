// Package trap describes the state captured when the supervisor traps into
// machine mode, how the cause of a trap is decoded, and the two trap vectors
// the firmware installs.
package trap

import "unsafe"

// Register numbers of the integer registers used by the firmware.
const (
	RA = 1
	SP = 2
	GP = 3
	TP = 4
	T0 = 5
	A0 = 10
	A1 = 11
	A6 = 16
	A7 = 17
)

// RegisterNames are the ABI names of x1..x31, in frame order.
var RegisterNames = [31]string{
	"ra", "sp", "gp", "tp", "t0", "t1", "t2", "s0", "s1",
	"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7",
	"s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
	"t3", "t4", "t5", "t6",
}

// Frame is the supervisor context saved on a trap and restored on resume.
// The layout is shared with targets/gosbi-trap.S: x1..x31, then mstatus, then
// mepc, one machine word each.
type Frame struct {
	Regs    [31]uintptr
	Mstatus uintptr
	Mepc    uintptr
}

// FrameSize is the size of a Frame in bytes.
const FrameSize = 33 * 8

// Compile-time check that the layout the assembly relies on holds.
var _ [FrameSize - unsafe.Sizeof(Frame{})]struct{}
var _ [unsafe.Sizeof(Frame{}) - FrameSize]struct{}

// Reg returns integer register xn. x0 always reads as zero.
func (f *Frame) Reg(n int) uintptr {
	if n == 0 {
		return 0
	}
	return f.Regs[n-1]
}

// SetReg writes integer register xn. Writes to x0 are discarded.
func (f *Frame) SetReg(n int, value uintptr) {
	if n == 0 {
		return
	}
	f.Regs[n-1] = value
}

// A returns argument register ai.
func (f *Frame) A(i int) uintptr {
	return f.Regs[A0-1+i]
}

// SetA writes argument register ai.
func (f *Frame) SetA(i int, value uintptr) {
	f.Regs[A0-1+i] = value
}
