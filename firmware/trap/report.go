package trap

import (
	"strconv"

	"github.com/gosbi/gosbi/firmware/riscv"
)

// Kinds of fatal report.
const (
	KindEarly      = "early"      // trap before the runtime took over
	KindIllegal    = "illegal"    // illegal instruction that cannot be emulated or transferred
	KindUnexpected = "unexpected" // trap that should have been delegated
	KindLoop       = "loop"       // transfer would re-enter the faulting instruction
)

// Report describes a trap the firmware cannot recover from.
type Report struct {
	Hart   int
	Kind   string
	Mcause uintptr
	Mtval  uintptr
	Insn   uint32
	Frame  Frame
}

// ReportPrefix starts every fatal report line.
const ReportPrefix = "gosbi: fatal "

// String formats the report as a single line, ending in a newline:
//
//	gosbi: fatal hart=1 kind=illegal mcause=0x2 mtval=0x0 insn=0x0 mepc=0x... mstatus=0x... ra=0x... ... t6=0x...
func (r *Report) String() string {
	buf := make([]byte, 0, 768)
	buf = append(buf, ReportPrefix...)
	buf = append(buf, "hart="...)
	buf = strconv.AppendInt(buf, int64(r.Hart), 10)
	buf = append(buf, " kind="...)
	buf = append(buf, r.Kind...)
	buf = appendHex(buf, "mcause", uint64(r.Mcause))
	buf = appendHex(buf, "mtval", uint64(r.Mtval))
	buf = appendHex(buf, "insn", uint64(r.Insn))
	buf = appendHex(buf, "mepc", uint64(r.Frame.Mepc))
	buf = appendHex(buf, "mstatus", uint64(r.Frame.Mstatus))
	for i, name := range RegisterNames {
		buf = appendHex(buf, name, uint64(r.Frame.Regs[i]))
	}
	buf = append(buf, '\n')
	return string(buf)
}

func appendHex(buf []byte, name string, value uint64) []byte {
	buf = append(buf, ' ')
	buf = append(buf, name...)
	buf = append(buf, "=0x"...)
	return strconv.AppendUint(buf, value, 16)
}

// Sink receives fatal reports. It must write even when the console is held by
// a hart that will never release it.
type Sink interface {
	Emergency(line string)
}

// EarlyFail is called by the early trap vector with the frame it saved. It
// reports the trap and stops the hart for good.
func EarlyFail(h *riscv.Hart, f *Frame, out Sink) {
	r := Report{
		Hart:   h.ID,
		Kind:   KindEarly,
		Mcause: h.Mcause.Get(),
		Mtval:  h.Mtval.Get(),
		Frame:  *f,
	}
	out.Emergency(r.String())
	h.Halt()
}
