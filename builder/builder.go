// Package builder turns the firmware sources into images that can be loaded
// onto a board: it runs TinyGo with the board's target, converts the
// resulting ELF file into raw binary and Intel HEX images, and records what
// was built in a manifest.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/gosbi/gosbi/boards"
)

// Output file names, inside Config.OutDir.
const (
	ELFName      = "gosbi.elf"
	BinName      = "gosbi.bin"
	HexName      = "gosbi.hex"
	ManifestName = "manifest.yaml"
	lockName     = ".gosbi.lock"
)

// The firmware main package, relative to the repository root.
const firmwarePackage = "./firmware"

var ErrBusy = errors.New("another build is using the output directory")

// Config is the configuration of a single build.
type Config struct {
	// Root is the repository root, containing go.mod and targets/.
	Root string

	// OutDir receives all build products.
	OutDir string

	Profile *boards.Profile

	// TinyGo is the tinygo command to run. Defaults to "tinygo" in $PATH.
	TinyGo string

	// Extra flags passed to tinygo build, for example "-opt=1".
	Flags []string

	// Output of the compiler. Defaults to os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

func (c *Config) tinygo() string {
	if c.TinyGo == "" {
		return "tinygo"
	}
	return c.TinyGo
}

func (c *Config) path(name string) string {
	return filepath.Join(c.OutDir, name)
}

// Result lists what a build produced.
type Result struct {
	ELF      string
	Bin      string
	Hex      string
	Manifest *Manifest
}

// Build compiles the firmware and packages it. Only one build may use an
// output directory at a time; Build waits for the directory until ctx is
// done.
func Build(ctx context.Context, config *Config) (*Result, error) {
	if err := os.MkdirAll(config.OutDir, 0o777); err != nil {
		return nil, err
	}
	lock := flock.New(config.path(lockName))
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrBusy, config.OutDir)
		}
		return nil, fmt.Errorf("could not lock output directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrBusy, config.OutDir)
	}
	defer lock.Unlock()

	if err := Compile(ctx, config); err != nil {
		return nil, err
	}
	return Package(config, config.path(ELFName))
}

// Compile runs tinygo build for the board, producing the ELF file.
func Compile(ctx context.Context, config *Config) error {
	target, err := WriteTarget(config)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, config.tinygo(), CompileArgs(config, target)...)
	cmd.Dir = config.Root
	cmd.Stdout = config.Stdout
	cmd.Stderr = config.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s build: %w", config.tinygo(), err)
	}
	return nil
}

// CompileArgs returns the arguments of the tinygo command that compiles the
// firmware with the given target file.
func CompileArgs(config *Config, target string) []string {
	args := []string{"build", "-target", target, "-o", config.path(ELFName)}
	args = append(args, config.Flags...)
	return append(args, firmwarePackage)
}

// WriteTarget writes the board's TinyGo target file into the output
// directory, with {root} replaced by the repository root. TinyGo resolves
// relative paths in target files against its own installation, so the paths
// to our linker script and assembly files have to be absolute.
func WriteTarget(config *Config) (string, error) {
	root, err := filepath.Abs(config.Root)
	if err != nil {
		return "", err
	}
	src := filepath.Join(root, filepath.FromSlash(config.Profile.Target))
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("board %s: %w", config.Profile.Name, err)
	}
	rendered := strings.ReplaceAll(string(data), "{root}", filepath.ToSlash(root))
	dst := config.path(filepath.Base(src))
	if err := os.WriteFile(dst, []byte(rendered), 0o666); err != nil {
		return "", err
	}
	return dst, nil
}
