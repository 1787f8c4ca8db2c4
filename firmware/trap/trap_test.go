package trap

import (
	"strings"
	"testing"

	"github.com/gosbi/gosbi/firmware/riscv"
	"github.com/gosbi/gosbi/firmware/riscv/riscvtest"
)

func TestFrameRegisters(t *testing.T) {
	var f Frame
	for n := 1; n < 32; n++ {
		f.SetReg(n, uintptr(n*0x10))
	}
	if f.Regs[0] != 0x10 || f.Regs[30] != 31*0x10 {
		t.Errorf("x1 and x31 stored at %#x and %#x", f.Regs[0], f.Regs[30])
	}
	f.SetReg(0, 0xdead)
	if got := f.Reg(0); got != 0 {
		t.Errorf("x0 reads %#x, want 0", got)
	}
	if got := f.A(0); got != A0*0x10 {
		t.Errorf("A(0) = %#x, want %#x", got, A0*0x10)
	}
	if got := f.A(7); got != A7*0x10 {
		t.Errorf("A(7) = %#x, want %#x", got, A7*0x10)
	}
	f.SetA(1, 42)
	if got := f.Reg(A1); got != 42 {
		t.Errorf("x11 after SetA(1) = %d, want 42", got)
	}
	if RegisterNames[A0-1] != "a0" || RegisterNames[SP-1] != "sp" || RegisterNames[30] != "t6" {
		t.Error("RegisterNames out of frame order")
	}
}

func TestClassify(t *testing.T) {
	const irq = uintptr(1) << 63
	cases := []struct {
		mcause uintptr
		want   Reason
	}{
		{riscv.SupervisorEnvCall, EnvironmentCall},
		{riscv.IllegalInstruction, IllegalInstruction},
		{irq | riscv.MachineTimerInterrupt, MachineTimer},
		{irq | riscv.MachineSoftwareInterrupt, MachineSoft},
		{riscv.UserEnvCall, Unexpected},
		{riscv.MachineEnvCall, Unexpected},
		{riscv.LoadPageFault, Unexpected},
		{irq | riscv.SupervisorTimerInterrupt, Unexpected},
		{irq | riscv.MachineExternalInterrupt, Unexpected},
		// Same codes without the interrupt bit are exceptions.
		{riscv.MachineTimerInterrupt, Unexpected},
	}
	for _, tc := range cases {
		if got := Classify(tc.mcause); got != tc.want {
			t.Errorf("Classify(%#x) = %v, want %v", tc.mcause, got, tc.want)
		}
	}
}

func TestCauseString(t *testing.T) {
	if got := Cause(riscv.IllegalInstruction).String(); got != "illegal instruction" {
		t.Errorf("got %q", got)
	}
	if got := Cause(1<<63 | riscv.MachineTimerInterrupt).String(); got != "machine timer interrupt" {
		t.Errorf("got %q", got)
	}
	if got := Cause(24).String(); got != "exception 24" {
		t.Errorf("got %q", got)
	}
}

func TestVectorInstall(t *testing.T) {
	h, _ := riscvtest.NewHart(2)
	Early.Install(h)
	if !Early.Installed(h) || Steady.Installed(h) {
		t.Fatalf("mtvec = %#x after installing the early vector", h.Mtvec.Get())
	}
	if got, want := h.Mscratch.Get(), uintptr(fakeStackBase+3*fakeStackSize); got != want {
		t.Errorf("mscratch = %#x, want stack top %#x", got, want)
	}

	h.Mscratch.Set(0x1234)
	Steady.Install(h)
	if !Steady.Installed(h) {
		t.Errorf("mtvec = %#x after installing the steady vector", h.Mtvec.Get())
	}
	if got := h.Mscratch.Get(); got != 0x1234 {
		t.Errorf("steady vector changed mscratch to %#x", got)
	}
	if h.Mtvec.Get()&3 != 0 {
		t.Error("vector not installed in direct mode")
	}
}

func TestTakeOver(t *testing.T) {
	h, _ := riscvtest.NewHart(0)
	// State left behind by the TinyGo runtime on hart 0.
	h.Mstatus.Set(riscv.MSTATUS_MIE | riscv.MSTATUS_MPP)
	h.Mie.Set(riscv.MIE_MSIE | riscv.MIE_MTIE)
	h.Mtvec.Set(0x8000_1000)

	TakeOver(h)

	if h.Mstatus.Get() != riscv.MSTATUS_MPP {
		t.Errorf("mstatus = %#x, want MIE cleared and nothing else changed", h.Mstatus.Get())
	}
	if h.Mie.Get() != riscv.MIE_MSIE {
		t.Errorf("mie = %#x, want the machine timer disabled", h.Mie.Get())
	}
	if !Early.Installed(h) {
		t.Errorf("mtvec = %#x, want the early vector", h.Mtvec.Get())
	}
	if got, want := h.Mscratch.Get(), uintptr(fakeStackBase+fakeStackSize); got != want {
		t.Errorf("mscratch = %#x, want stack top %#x", got, want)
	}
}

type sink struct{ lines []string }

func (s *sink) Emergency(line string) { s.lines = append(s.lines, line) }

func TestEarlyFail(t *testing.T) {
	h, m := riscvtest.NewHart(3)
	h.Mcause.Set(riscv.LoadAccessFault)
	h.Mtval.Set(0xdeadbeef)
	var f Frame
	f.Mepc = 0x80200010
	f.SetReg(SP, 0x80104000)

	var out sink
	EarlyFail(h, &f, &out)

	if !m.Halted() {
		t.Error("hart not halted")
	}
	if len(out.lines) != 1 {
		t.Fatalf("got %d report lines, want 1", len(out.lines))
	}
	line := out.lines[0]
	for _, want := range []string{
		"gosbi: fatal hart=3 kind=early ",
		" mcause=0x5 ",
		" mtval=0xdeadbeef ",
		" mepc=0x80200010 ",
		" sp=0x80104000 ",
		" t6=0x0\n",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("report %q does not contain %q", line, want)
		}
	}
}
