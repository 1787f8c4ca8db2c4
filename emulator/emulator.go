// Package emulator builds and runs the commands that start a firmware image
// in QEMU and attach a debugger to it, from the command templates in a board
// profile.
package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/gosbi/gosbi/boards"
)

var (
	ErrNoEmulator = errors.New("board has no emulator")
	ErrNoDebugger = errors.New("no debugger found")
)

// Options for a single emulator run.
type Options struct {
	// Firmware is the image to boot, usually the ELF file.
	Firmware string

	// Kernel is the supervisor image loaded at the board's supervisor entry.
	// It may be empty.
	Kernel string

	// SMP overrides the number of harts of the profile.
	SMP int

	// GDB makes the emulator wait for a debugger before running.
	GDB bool

	// Extra arguments, split like a shell would.
	Extra string
}

// Command returns the emulator command line for the profile.
func Command(profile *boards.Profile, options Options) ([]string, error) {
	if profile.Emulator == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoEmulator, profile.Name)
	}
	smp := options.SMP
	if smp == 0 {
		smp = profile.Harts
	}
	vars := map[string]string{
		"{smp}":      strconv.Itoa(smp),
		"{firmware}": options.Firmware,
		"{kernel}":   options.Kernel,
		"{entry}":    fmt.Sprintf("%#x", profile.SupervisorEntry),
	}

	args, err := expand(profile.Emulator, vars)
	if err != nil {
		return nil, fmt.Errorf("board %s: emulator: %w", profile.Name, err)
	}
	if options.Kernel != "" && profile.KernelArgs != "" {
		kernel, err := expand(profile.KernelArgs, vars)
		if err != nil {
			return nil, fmt.Errorf("board %s: kernel-args: %w", profile.Name, err)
		}
		args = append(args, kernel...)
	}
	if options.GDB {
		args = append(args, "-S", "-gdb", "tcp::"+strconv.Itoa(profile.GDBPort))
	}
	if options.Extra != "" {
		extra, err := shlex.Split(options.Extra)
		if err != nil {
			return nil, fmt.Errorf("emulator arguments: %w", err)
		}
		args = append(args, extra...)
	}
	return args, nil
}

// expand splits a command template into words and then replaces the
// placeholders in each word, so that values containing spaces stay one
// argument.
func expand(template string, vars map[string]string) ([]string, error) {
	words, err := shlex.Split(template)
	if err != nil {
		return nil, err
	}
	for i, word := range words {
		for name, value := range vars {
			word = strings.ReplaceAll(word, name, value)
		}
		words[i] = word
	}
	return words, nil
}

// lookPath is exec.LookPath, replaced in tests.
var lookPath = exec.LookPath

// GDBCommand returns a debugger command that loads the symbols of elfFile
// and connects to the emulator or on-chip debugger of the profile. The first
// debugger of the profile found in $PATH is used.
func GDBCommand(profile *boards.Profile, elfFile string, extra string) ([]string, error) {
	var gdb string
	for _, name := range profile.GDB {
		if path, err := lookPath(name); err == nil {
			gdb = path
			break
		}
	}
	if gdb == "" {
		return nil, fmt.Errorf("%w for board %s (tried: %s)", ErrNoDebugger, profile.Name, strings.Join(profile.GDB, ", "))
	}
	args := []string{gdb, elfFile, "-ex", "target extended-remote :" + strconv.Itoa(profile.GDBPort)}
	if extra != "" {
		words, err := shlex.Split(extra)
		if err != nil {
			return nil, fmt.Errorf("gdb arguments: %w", err)
		}
		args = append(args, words...)
	}
	return args, nil
}

// Run starts the command and waits for it to exit. When ctx is done the
// process gets an interrupt, and is killed if it is still around a second
// later.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			// Stopped on purpose.
			return nil
		}
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}
