// Package boards contains the host-side description of each board the
// firmware supports: which TinyGo target to build with, where the image goes,
// how to emulate it and how to talk to it.
package boards

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/inhies/go-bytesize"
	"gopkg.in/yaml.v2"
)

//go:embed *.yaml
var profiles embed.FS

var ErrUnknownBoard = errors.New("unknown board")

// Profile describes one board.
type Profile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Target is the TinyGo target file, relative to the repository root.
	Target string `yaml:"target"`

	// Harts is the number of harts to boot, and the default -smp.
	Harts int `yaml:"harts"`

	LoadAddress     uint64 `yaml:"load-address"`
	SupervisorEntry uint64 `yaml:"supervisor-entry"`

	// SizeBudget is the largest firmware image allowed, like "512KB".
	SizeBudget string `yaml:"size-budget"`

	// Emulator is the command line to run the firmware, with {smp},
	// {firmware}, {kernel} and {entry} placeholders. KernelArgs are added when
	// a kernel is given. Boards without an emulator can't be run.
	Emulator   string `yaml:"emulator"`
	KernelArgs string `yaml:"kernel-args"`

	// GDB lists debugger names to try, in order.
	GDB     []string `yaml:"gdb"`
	GDBPort int      `yaml:"gdb-port"`

	Serial struct {
		Port string `yaml:"port"`
		Baud int    `yaml:"baud"`
	} `yaml:"serial"`
}

// Budget returns the parsed size budget, or 0 if there is none.
func (p *Profile) Budget() (bytesize.ByteSize, error) {
	if p.SizeBudget == "" {
		return 0, nil
	}
	size, err := bytesize.Parse(p.SizeBudget)
	if err != nil {
		return 0, fmt.Errorf("board %s: size-budget: %w", p.Name, err)
	}
	return size, nil
}

func (p *Profile) validate() error {
	if p.Name == "" {
		return errors.New("missing name")
	}
	if p.Target == "" {
		return fmt.Errorf("board %s: missing target", p.Name)
	}
	if p.Harts < 1 {
		return fmt.Errorf("board %s: harts must be at least 1", p.Name)
	}
	if p.SupervisorEntry <= p.LoadAddress {
		return fmt.Errorf("board %s: supervisor entry %#x overlaps the firmware at %#x", p.Name, p.SupervisorEntry, p.LoadAddress)
	}
	if _, err := p.Budget(); err != nil {
		return err
	}
	if p.Serial.Baud == 0 {
		p.Serial.Baud = 115200
	}
	return nil
}

// Parse reads a profile from YAML.
func Parse(data []byte) (*Profile, error) {
	p := &Profile{}
	if err := yaml.UnmarshalStrict(data, p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load returns the built-in profile of the named board.
func Load(name string) (*Profile, error) {
	data, err := profiles.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %s (known boards: %s)", ErrUnknownBoard, name, strings.Join(Names(), ", "))
	}
	return Parse(data)
}

// LoadFile reads a profile from a file, for boards that are not built in.
func LoadFile(filename string) (*Profile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return p, nil
}

// Names returns the names of all built-in boards, sorted.
func Names() []string {
	entries, _ := profiles.ReadDir(".")
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}
