package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gosbi/gosbi/boards"
	"github.com/gosbi/gosbi/builder"
	"github.com/gosbi/gosbi/diagnostics"
	"github.com/gosbi/gosbi/emulator"
	"github.com/gosbi/gosbi/monitor"
)

// Version of the firmware and tools. GitSha1 is set by the linker.
const version = "0.1.0-dev"

var GitSha1 = ""

func usage(command string) {
	switch command {
	default:
		fmt.Fprintln(os.Stderr, "gosbi builds, runs and debugs an SBI firmware for RISC-V boards.")
		fmt.Fprintln(os.Stderr, "version:", versionString())
		fmt.Fprintf(os.Stderr, "usage: %s <command> [arguments]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\ncommands:")
		fmt.Fprintln(os.Stderr, "  build:   compile the firmware into gosbi.elf, gosbi.bin and gosbi.hex")
		fmt.Fprintln(os.Stderr, "  run:     build the firmware and run it in the board's emulator")
		fmt.Fprintln(os.Stderr, "  gdb:     attach a debugger to a running emulator or board")
		fmt.Fprintln(os.Stderr, "  monitor: connect to the board's serial console")
		fmt.Fprintln(os.Stderr, "  decode:  print the fatal hart reports in a console log")
		fmt.Fprintln(os.Stderr, "  boards:  list the built-in boards")
		fmt.Fprintln(os.Stderr, "  version: show version")
		fmt.Fprintln(os.Stderr, "  help:    print this help text")

		if flag.Parsed() {
			fmt.Fprintln(os.Stderr, "\nflags:")
			flag.PrintDefaults()
		}

		fmt.Fprintln(os.Stderr, "\nfor more details, see the README")
	}
}

func versionString() string {
	if GitSha1 != "" {
		return version + "-" + GitSha1
	}
	return version
}

// handleError prints the error, if there is one, and exits.
func handleError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

// loadProfile returns the profile named by -profile or -board.
func loadProfile(board, profile string) (*boards.Profile, error) {
	if profile != "" {
		return boards.LoadFile(profile)
	}
	return boards.Load(board)
}

// repoRoot returns the directory containing go.mod, starting at the working
// directory.
func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find the gosbi repository (no go.mod in any parent directory)")
		}
		dir = parent
	}
}

// reporter prints fatal reports as they appear in console output.
func reporter() func(diagnostics.Diagnostic) {
	w, color := diagnostics.Output(os.Stderr)
	return func(d diagnostics.Diagnostic) {
		fmt.Fprint(w, "\r\n")
		d.WriteTo(w, color)
	}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "No command-line arguments supplied.")
		usage("")
		os.Exit(1)
	}
	command := os.Args[1]

	board := flag.String("board", "virt", "board to build for (see gosbi boards)")
	profileFile := flag.String("profile", "", "board profile file, instead of -board")
	outDir := flag.String("o", "out", "output directory")
	tinygo := flag.String("tinygo", "tinygo", "tinygo command")
	buildFlags := flag.String("build-flags", "", "extra flags for tinygo build")
	kernel := flag.String("kernel", "", "supervisor image to load at the supervisor entry")
	smp := flag.Int("smp", 0, "number of harts to emulate (default: from the board)")
	gdb := flag.Bool("gdb", false, "wait for a debugger before running")
	emulatorArgs := flag.String("emulator-args", "", "extra emulator arguments")
	gdbArgs := flag.String("gdb-args", "", "extra debugger arguments")
	port := flag.String("port", "", "serial port (default: from the board, or the only port present)")
	baud := flag.Int("baud", 0, "serial baud rate (default: from the board)")

	flag.CommandLine.Usage = func() { usage(command) }
	if err := flag.CommandLine.Parse(os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "could not parse flags:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	needsProfile := map[string]bool{"build": true, "run": true, "gdb": true, "monitor": true}
	var profile *boards.Profile
	if needsProfile[command] {
		var err error
		profile, err = loadProfile(*board, *profileFile)
		handleError(err)
	}

	buildConfig := func() *builder.Config {
		root, err := repoRoot()
		handleError(err)
		flags, err := splitFlags(*buildFlags)
		handleError(err)
		return &builder.Config{
			Root:    root,
			OutDir:  *outDir,
			Profile: profile,
			TinyGo:  *tinygo,
			Flags:   flags,
		}
	}

	switch command {
	case "build":
		result, err := builder.Build(ctx, buildConfig())
		if result != nil {
			m := result.Manifest
			fmt.Printf("%s: %s at %s, crc16 %s\n", result.Bin, m.HumanSize(), m.LoadAddress, m.CRC16)
		}
		handleError(err)
	case "run":
		result, err := builder.Build(ctx, buildConfig())
		handleError(err)
		args, err := emulator.Command(profile, emulator.Options{
			Firmware: result.ELF,
			Kernel:   *kernel,
			SMP:      *smp,
			GDB:      *gdb,
			Extra:    *emulatorArgs,
		})
		handleError(err)
		fmt.Fprintln(os.Stderr, strings.Join(args, " "))
		out := diagnostics.NewWatcher(os.Stdout, reporter())
		handleError(emulator.Run(ctx, args, os.Stdin, out, os.Stderr))
	case "gdb":
		args, err := emulator.GDBCommand(profile, filepath.Join(*outDir, builder.ELFName), *gdbArgs)
		handleError(err)
		// gdb handles Ctrl-C itself.
		signal.Ignore(os.Interrupt)
		handleError(emulator.Run(context.Background(), args, os.Stdin, os.Stdout, os.Stderr))
	case "monitor":
		config := &monitor.Config{
			Port:  *port,
			Baud:  *baud,
			Found: reporter(),
		}
		if config.Port == "" {
			config.Port = profile.Serial.Port
		}
		if config.Baud == 0 {
			config.Baud = profile.Serial.Baud
		}
		handleError(monitor.Monitor(ctx, config))
	case "decode":
		var in io.Reader = os.Stdin
		if flag.NArg() > 0 {
			f, err := os.Open(flag.Arg(0))
			handleError(err)
			defer f.Close()
			in = f
		}
		diags, err := diagnostics.Scan(in)
		w, color := diagnostics.Output(os.Stdout)
		diags.WriteTo(w, color)
		if len(diags) == 0 && err == nil {
			fmt.Fprintln(os.Stderr, "no fatal reports found")
		}
		handleError(err)
	case "boards":
		for _, name := range boards.Names() {
			p, err := boards.Load(name)
			handleError(err)
			fmt.Printf("%-12s %s\n", name, p.Description)
		}
	case "version":
		fmt.Printf("gosbi version %s\n", versionString())
	case "help":
		usage("")
	default:
		fmt.Fprintln(os.Stderr, "Unknown command:", command)
		usage("")
		os.Exit(1)
	}
}
