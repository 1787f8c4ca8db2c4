package diagnostics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gosbi/gosbi/firmware/trap"
)

func testReport(hart int) trap.Report {
	r := trap.Report{
		Hart:   hart,
		Kind:   trap.KindIllegal,
		Mcause: 2,
		Mtval:  0x500b,
		Insn:   0x500b,
	}
	r.Frame.Mepc = 0x80200010
	r.Frame.Mstatus = 0xa00000880
	for i := range r.Frame.Regs {
		r.Frame.Regs[i] = uintptr(0x1000 + i)
	}
	r.Frame.SetReg(trap.SP, 0x80400000)
	return r
}

func TestParseLine(t *testing.T) {
	want := testReport(2)
	line := "OpenSBI? no. " + strings.TrimSuffix(want.String(), "\n") + "\r"
	got, err := ParseLine(line)
	if err != nil {
		t.Fatal("ParseLine failed:", err)
	}
	if got != want {
		t.Errorf("ParseLine returned %+v, want %+v", got, want)
	}
}

func TestParseLineErrors(t *testing.T) {
	fullReport := testReport(0)
	full := strings.TrimSuffix(fullReport.String(), "\n")
	cases := []struct {
		name string
		line string
		want string
	}{
		{"no report", "gosbi: hart 0 up", "not a fatal report"},
		{"truncated", full[:len(trap.ReportPrefix)+len("hart=0 kind=illegal")], "missing mcause"},
		{"bad value", trap.ReportPrefix + "hart=0 kind=early mcause=0xzz mepc=0x0", "mcause"},
		{"unknown register", trap.ReportPrefix + "hart=0 kind=early mcause=0x1 mepc=0x0 x99=0x1", "unknown field"},
		{"no equals", trap.ReportPrefix + "hart=0 kind", "malformed field"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLine(tc.line)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("ParseLine returned %v, want an error containing %q", err, tc.want)
			}
		})
	}
}

func TestScan(t *testing.T) {
	r1 := testReport(1)
	r0 := testReport(0)
	r0.Kind = trap.KindLoop
	log := "gosbi: booting\n" +
		r1.String() +
		"[    0.000000] Linux version\n" +
		r0.String() +
		trap.ReportPrefix + "hart=3 kind=early mcau\n"

	diags, err := Scan(strings.NewReader(log))
	if err == nil || !strings.Contains(err.Error(), "line 5") {
		t.Errorf("Scan returned error %v, want one for line 5", err)
	}
	if len(diags) != 2 {
		t.Fatalf("Scan found %d reports, want 2", len(diags))
	}
	if diags[0].Report.Hart != 0 || diags[0].Line != 4 || diags[1].Report.Hart != 1 || diags[1].Line != 2 {
		t.Errorf("Scan returned reports in the wrong order: %+v", diags)
	}
}

func TestWriteTo(t *testing.T) {
	diags := Diagnostics{{Line: 7, Report: testReport(1)}}

	plain := &bytes.Buffer{}
	diags.WriteTo(plain, false)
	for _, want := range []string{
		"hart 1: illegal: illegal instruction\n",
		"(line 7)",
		"mepc    0x0000000080200010",
		"sp      0x0000000080400000",
		"t6      0x000000000000101e\n",
	} {
		if !strings.Contains(plain.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, plain.String())
		}
	}
	if strings.Contains(plain.String(), "\x1b[") {
		t.Errorf("uncolored output contains escapes:\n%s", plain.String())
	}
	if lines := strings.Count(plain.String(), "\n"); lines != 2+2+1+11 {
		t.Errorf("output has %d lines, want 16:\n%s", lines, plain.String())
	}

	colored := &bytes.Buffer{}
	diags.WriteTo(colored, true)
	if !strings.HasPrefix(colored.String(), colorFatal+"hart 1") {
		t.Errorf("colored output does not start with the fatal color: %q", colored.String())
	}
}

func TestWatcher(t *testing.T) {
	var found []Diagnostic
	out := &bytes.Buffer{}
	w := NewWatcher(out, func(d Diagnostic) { found = append(found, d) })

	report3 := testReport(3)
	report := report3.String()
	input := "gosbi: hello\r\n" + report
	// Feed the output in small pieces, like a serial port would.
	for i := 0; i < len(input); i += 7 {
		end := i + 7
		if end > len(input) {
			end = len(input)
		}
		if _, err := w.Write([]byte(input[i:end])); err != nil {
			t.Fatal(err)
		}
	}
	if out.String() != input {
		t.Errorf("Watcher changed the output:\n%q\nwant:\n%q", out.String(), input)
	}
	if len(found) != 1 || found[0].Line != 2 || found[0].Report.Hart != 3 {
		t.Errorf("Watcher found %+v", found)
	}
}
