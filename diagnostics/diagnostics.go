// Package diagnostics finds the fatal reports that harts print before they
// halt, in console output or a saved log, and prints them in a readable way.
package diagnostics

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gosbi/gosbi/firmware/trap"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// A single fatal report found in the output.
type Diagnostic struct {
	// Line is the 1-based line of the output the report was found on.
	Line int

	Report trap.Report
}

// All reports of one run, sorted by hart and then by line.
type Diagnostics []Diagnostic

var registerIndex = func() map[string]int {
	m := make(map[string]int, len(trap.RegisterNames))
	for i, name := range trap.RegisterNames {
		m[name] = i
	}
	return m
}()

var errNoReport = errors.New("not a fatal report")

// ParseLine decodes a fatal report line. Text before the report prefix (from
// other harts or the emulator) is ignored.
func ParseLine(line string) (trap.Report, error) {
	var r trap.Report
	i := strings.Index(line, trap.ReportPrefix)
	if i < 0 {
		return r, errNoReport
	}
	seen := map[string]bool{}
	for _, field := range strings.Fields(line[i+len(trap.ReportPrefix):]) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return r, fmt.Errorf("malformed field %q", field)
		}
		seen[key] = true
		if key == "kind" {
			r.Kind = value
			continue
		}
		if key == "hart" {
			hart, err := strconv.Atoi(value)
			if err != nil {
				return r, fmt.Errorf("hart: %w", err)
			}
			r.Hart = hart
			continue
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(value, "0x"), 16, 64)
		if err != nil {
			return r, fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "mcause":
			r.Mcause = uintptr(n)
		case "mtval":
			r.Mtval = uintptr(n)
		case "insn":
			r.Insn = uint32(n)
		case "mepc":
			r.Frame.Mepc = uintptr(n)
		case "mstatus":
			r.Frame.Mstatus = uintptr(n)
		default:
			index, ok := registerIndex[key]
			if !ok {
				return r, fmt.Errorf("unknown field %q", key)
			}
			r.Frame.Regs[index] = uintptr(n)
		}
	}
	for _, key := range []string{"hart", "kind", "mcause", "mepc"} {
		if !seen[key] {
			return r, fmt.Errorf("missing %s", key)
		}
	}
	return r, nil
}

// Scan reads output until EOF and returns the fatal reports in it. Lines that
// start like a report but cannot be decoded (usually because the output was
// cut off) are returned with their line number in the error, after all
// reports that could be read.
func Scan(r io.Reader) (Diagnostics, error) {
	var diags Diagnostics
	var errs []error
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		report, err := ParseLine(scanner.Text())
		if err == errNoReport {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		diags = append(diags, Diagnostic{Line: line, Report: report})
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}
	diags.sort()
	return diags, errors.Join(errs...)
}

func (diags Diagnostics) sort() {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Report.Hart != diags[j].Report.Hart {
			return diags[i].Report.Hart < diags[j].Report.Hart
		}
		return diags[i].Line < diags[j].Line
	})
}

var kindDescriptions = map[string]string{
	trap.KindEarly:      "trap before the supervisor was started",
	trap.KindIllegal:    "illegal instruction that cannot be emulated or passed to the supervisor",
	trap.KindUnexpected: "trap that should have been delegated to the supervisor",
	trap.KindLoop:       "passing the trap on would re-enter the faulting instruction",
}

const (
	colorFatal = "\x1b[1;31m"
	colorField = "\x1b[36m"
	colorReset = "\x1b[0m"
)

// Write all reports to w. Color uses ANSI escapes.
func (diags Diagnostics) WriteTo(w io.Writer, color bool) {
	for i, diag := range diags {
		if i > 0 {
			fmt.Fprintln(w)
		}
		diag.WriteTo(w, color)
	}
}

// Write this report to w, in a multi-line form.
func (diag Diagnostic) WriteTo(w io.Writer, color bool) {
	paint := func(c, s string) string {
		if !color {
			return s
		}
		return c + s + colorReset
	}
	r := &diag.Report
	header := fmt.Sprintf("hart %d: %s: %s", r.Hart, r.Kind, trap.Cause(r.Mcause))
	fmt.Fprintln(w, paint(colorFatal, header))
	if desc, ok := kindDescriptions[r.Kind]; ok {
		fmt.Fprintf(w, "  %s (line %d)\n", desc, diag.Line)
	} else {
		fmt.Fprintf(w, "  line %d\n", diag.Line)
	}
	field := func(name string, value uint64) string {
		return fmt.Sprintf("%s %#018x", paint(colorField, fmt.Sprintf("%-7s", name)), value)
	}
	fmt.Fprintf(w, "  %s  %s\n", field("mepc", uint64(r.Frame.Mepc)), field("mstatus", uint64(r.Frame.Mstatus)))
	fmt.Fprintf(w, "  %s  %s\n", field("mcause", uint64(r.Mcause)), field("mtval", uint64(r.Mtval)))
	if r.Insn != 0 {
		fmt.Fprintf(w, "  %s\n", field("insn", uint64(r.Insn)))
	}
	for i, name := range trap.RegisterNames {
		sep := "  "
		if i%3 == 2 || i == len(trap.RegisterNames)-1 {
			sep = "\n"
		}
		if i%3 == 0 {
			fmt.Fprint(w, "  ")
		}
		fmt.Fprint(w, field(name, uint64(r.Frame.Regs[i])), sep)
	}
}

// Output returns a writer for f that understands ANSI colors on every
// platform, and whether f is a terminal that should get colors.
func Output(f *os.File) (io.Writer, bool) {
	fd := f.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return colorable.NewColorable(f), true
	}
	return colorable.NewNonColorable(f), false
}
