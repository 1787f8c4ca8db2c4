package execute

import "github.com/gosbi/gosbi/firmware/trap"

// emulator handles an illegal instruction in place of the hardware. It
// reports false if insn is not one it implements, in which case it must not
// have changed anything.
type emulator func(d *Dispatcher, f *trap.Frame, insn uint32) bool

var emulators = []emulator{
	emulateRdtime,
}

const (
	rdtimeMask  = 0xFFFFF07F
	rdtimeMatch = 0xC0102073 // csrrs rd, time, x0
)

// rdtime reads the time CSR, which is not implemented by all harts. The
// value is taken from the CLINT mtime register.
func emulateRdtime(d *Dispatcher, f *trap.Frame, insn uint32) bool {
	if insn&rdtimeMask != rdtimeMatch {
		return false
	}
	rd := int(insn>>7) & 0x1f
	f.SetReg(rd, uintptr(d.Clint.Mtime()))
	f.Mepc += 4
	return true
}
