package boards

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gosbi/gosbi/firmware/board"
	"github.com/inhies/go-bytesize"
)

func TestBuiltinProfiles(t *testing.T) {
	names := Names()
	if len(names) != 2 || names[0] != "unmatched" || names[1] != "virt" {
		t.Fatalf("Names() = %v", names)
	}
	for _, name := range names {
		p, err := Load(name)
		if err != nil {
			t.Errorf("Load(%q): %v", name, err)
			continue
		}
		if p.Name != name {
			t.Errorf("profile %s is named %q", name, p.Name)
		}
		if !strings.HasPrefix(p.Target, "targets/gosbi-") {
			t.Errorf("profile %s builds for %q", name, p.Target)
		}
		if budget, err := p.Budget(); err != nil || budget != 2*bytesize.MB {
			t.Errorf("profile %s has budget %v, %v", name, budget, err)
		}
	}

	virt, _ := Load("virt")
	if virt.Harts != 4 || virt.SupervisorEntry != 0x80200000 || virt.Emulator == "" {
		t.Errorf("unexpected virt profile: %+v", virt)
	}
	unmatched, _ := Load("unmatched")
	if unmatched.Harts != 5 || unmatched.Serial.Baud != 115200 || unmatched.Emulator != "" {
		t.Errorf("unexpected unmatched profile: %+v", unmatched)
	}
}

func TestUnknownBoard(t *testing.T) {
	_, err := Load("hifive1")
	if !errors.Is(err, ErrUnknownBoard) {
		t.Errorf("Load returned %v, want ErrUnknownBoard", err)
	}
	if err != nil && !strings.Contains(err.Error(), "virt") {
		t.Errorf("error %q does not list the known boards", err)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no target", "name: x\nharts: 1\nsupervisor-entry: 1\n", "missing target"},
		{"no harts", "name: x\ntarget: t\nsupervisor-entry: 1\n", "harts"},
		{"overlap", "name: x\ntarget: t\nharts: 1\nload-address: 0x80000000\nsupervisor-entry: 0x80000000\n", "overlaps"},
		{"budget", "name: x\ntarget: t\nharts: 1\nsupervisor-entry: 1\nsize-budget: lots\n", "size-budget"},
		{"unknown field", "name: x\ntarget: t\nharts: 1\nsupervisor-entry: 1\nflash: yes\n", "flash"},
	}
	for _, tc := range cases {
		_, err := Parse([]byte(tc.yaml))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: Parse returned %v, want an error about %q", tc.name, err, tc.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "custom.yaml")
	err := os.WriteFile(filename, []byte("name: custom\ntarget: targets/custom.json\nharts: 2\nsupervisor-entry: 0x80200000\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	p, err := LoadFile(filename)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if p.Name != "custom" || p.Harts != 2 || p.Serial.Baud != 115200 {
		t.Errorf("LoadFile returned %+v", p)
	}
	if budget, err := p.Budget(); budget != 0 || err != nil {
		t.Errorf("profile without budget has budget %v, %v", budget, err)
	}
}

// The host profiles must agree with the constants the firmware is built with.
func TestProfileMatchesFirmware(t *testing.T) {
	p, err := Load(board.Name)
	if err != nil {
		t.Fatal(err)
	}
	if p.LoadAddress != board.FirmwareBase {
		t.Errorf("profile loads the firmware at %#x, firmware is linked at %#x", p.LoadAddress, uint64(board.FirmwareBase))
	}
	if p.SupervisorEntry != board.SupervisorEntry {
		t.Errorf("profile loads the kernel at %#x, firmware jumps to %#x", p.SupervisorEntry, uint64(board.SupervisorEntry))
	}
	if p.Harts > board.MaxHarts {
		t.Errorf("profile boots %d harts, firmware supports %d", p.Harts, board.MaxHarts)
	}
}
