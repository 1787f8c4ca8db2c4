package builder

import (
	"bufio"
	"bytes"
	"context"
	"debug/elf"
	"encoding/binary"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/gosbi/gosbi/boards"
)

type segment struct {
	addr   uint64
	data   []byte
	memsz  uint64 // 0 means len(data)
	noFile bool
}

// writeELF writes a minimal RISC-V ELF64 file with one PT_LOAD program
// header per segment and no section headers.
func writeELF(t *testing.T, filename string, entry uint64, segments []segment) {
	t.Helper()
	const ehsize, phentsize = 64, 56
	off := uint64(ehsize + phentsize*len(segments))

	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_RISCV),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     entry,
		Phoff:     ehsize,
		Ehsize:    ehsize,
		Phentsize: phentsize,
		Phnum:     uint16(len(segments)),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, &hdr)
	var contents []byte
	for _, s := range segments {
		memsz := s.memsz
		if memsz == 0 {
			memsz = uint64(len(s.data))
		}
		prog := elf.Prog64{
			Type:   uint32(elf.PT_LOAD),
			Flags:  uint32(elf.PF_R | elf.PF_X),
			Off:    off + uint64(len(contents)),
			Vaddr:  s.addr,
			Paddr:  s.addr,
			Filesz: uint64(len(s.data)),
			Memsz:  memsz,
			Align:  4,
		}
		if s.noFile {
			prog.Filesz = 0
		}
		binary.Write(buf, binary.LittleEndian, &prog)
		if !s.noFile {
			contents = append(contents, s.data...)
		}
	}
	buf.Write(contents)
	if err := os.WriteFile(filename, buf.Bytes(), 0o666); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	profile, err := boards.Load("virt")
	if err != nil {
		t.Fatal(err)
	}
	return &Config{Root: "..", OutDir: t.TempDir(), Profile: profile}
}

func TestExtractROM(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "fw.elf")
	writeELF(t, filename, 0x80000000, []segment{
		{addr: 0x80000000, data: []byte{1, 2, 3, 4, 5, 6}},
		{addr: 0x80000008, data: []byte{7, 8}},
		{addr: 0x80001000, data: make([]byte, 16), memsz: 0x4000, noFile: true},
	})

	addr, entry, rom, err := extractROM(filename)
	if err != nil {
		t.Fatal("extractROM failed:", err)
	}
	if addr != 0x80000000 || entry != 0x80000000 {
		t.Errorf("extractROM returned addr=%#x entry=%#x, want 0x80000000 for both", addr, entry)
	}
	want := []byte{1, 2, 3, 4, 5, 6, 0, 0, 7, 8}
	if !bytes.Equal(rom, want) {
		t.Errorf("extractROM returned %v, want %v", rom, want)
	}
}

func TestExtractROMErrors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.elf")
	writeELF(t, empty, 0, nil)
	if _, _, _, err := extractROM(empty); err == nil || !strings.Contains(err.Error(), "does not contain ROM segments") {
		t.Errorf("extractROM of an empty file returned %v", err)
	}

	sparse := filepath.Join(dir, "sparse.elf")
	writeELF(t, sparse, 0x80000000, []segment{
		{addr: 0x80000000, data: []byte{1}},
		{addr: 0x80100000, data: []byte{2}},
	})
	if _, _, _, err := extractROM(sparse); err == nil || !strings.Contains(err.Error(), "non-contiguous") {
		t.Errorf("extractROM of a sparse file returned %v", err)
	}

	if _, _, _, err := extractROM(filepath.Join(dir, "missing.elf")); err == nil {
		t.Error("extractROM of a missing file succeeded")
	}
}

func TestPackage(t *testing.T) {
	config := testConfig(t)
	rom := []byte("123456789")
	elfFile := filepath.Join(config.OutDir, ELFName)
	writeELF(t, elfFile, 0x80000000, []segment{{addr: 0x80000000, data: rom}})

	result, err := Package(config, elfFile)
	if err != nil {
		t.Fatal("Package failed:", err)
	}

	bin, err := os.ReadFile(result.Bin)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bin, rom) {
		t.Errorf("%s contains %q, want %q", BinName, bin, rom)
	}

	// 0x8000_0000 needs an extended linear address record before the data.
	hex, err := os.Open(result.Hex)
	if err != nil {
		t.Fatal(err)
	}
	defer hex.Close()
	var records []string
	scanner := bufio.NewScanner(hex)
	for scanner.Scan() {
		records = append(records, strings.TrimSpace(scanner.Text()))
	}
	extended := false
	for _, r := range records {
		if strings.EqualFold(r, ":0200000480007A") {
			extended = true
		}
	}
	if !extended || len(records) < 3 || !strings.EqualFold(records[len(records)-1], ":00000001FF") {
		t.Errorf("unexpected Intel HEX records: %q", records)
	}

	m, err := ReadManifest(filepath.Join(config.OutDir, ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	// CRC-16/XMODEM check value.
	if m.CRC16 != "0x31c3" {
		t.Errorf("manifest crc16 is %s, want 0x31c3", m.CRC16)
	}
	if m.Board != "virt" || m.LoadAddress != "0x80000000" || m.Entry != "0x80000000" || m.Size != 9 {
		t.Errorf("unexpected manifest: %+v", m)
	}
	if !strings.HasPrefix(m.HumanSize(), "9") {
		t.Errorf("HumanSize returned %s, want 9 bytes", m.HumanSize())
	}
}

func TestPackageLoadAddress(t *testing.T) {
	config := testConfig(t)
	elfFile := filepath.Join(config.OutDir, ELFName)
	writeELF(t, elfFile, 0x80200000, []segment{{addr: 0x80200000, data: []byte{1}}})

	if _, err := Package(config, elfFile); err == nil || !strings.Contains(err.Error(), "loads firmware at 0x80000000") {
		t.Errorf("Package of an image at the wrong address returned %v", err)
	}
}

func TestPackageTooLarge(t *testing.T) {
	config := testConfig(t)
	config.Profile.SizeBudget = "1KB"
	elfFile := filepath.Join(config.OutDir, ELFName)
	writeELF(t, elfFile, 0x80000000, []segment{{addr: 0x80000000, data: make([]byte, 2000)}})

	result, err := Package(config, elfFile)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Package returned %v, want ErrTooLarge", err)
	}
	if result == nil {
		t.Fatal("Package returned no result for an oversized image")
	}
	if _, err := os.Stat(result.Bin); err != nil {
		t.Errorf("oversized image was not written: %v", err)
	}
}

func TestWriteTarget(t *testing.T) {
	config := testConfig(t)
	target, err := WriteTarget(config)
	if err != nil {
		t.Fatal("WriteTarget failed:", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "{root}") {
		t.Errorf("%s still contains {root}:\n%s", target, data)
	}
	root, _ := filepath.Abs("..")
	if !strings.Contains(string(data), filepath.ToSlash(root)+"/targets/gosbi.ld") {
		t.Errorf("%s does not point at the linker script:\n%s", target, data)
	}

	args := CompileArgs(config, target)
	want := []string{"build", "-target", target, "-o", filepath.Join(config.OutDir, ELFName), "./firmware"}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Errorf("CompileArgs returned %q, want %q", args, want)
	}
}

func TestBuildBusy(t *testing.T) {
	config := testConfig(t)
	lock := flock.New(filepath.Join(config.OutDir, lockName))
	if locked, err := lock.TryLock(); !locked || err != nil {
		t.Fatalf("could not take the lock: %v", err)
	}
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := Build(ctx, config); !errors.Is(err, ErrBusy) {
		t.Errorf("Build returned %v, want ErrBusy", err)
	}
}

func TestBuildFirmware(t *testing.T) {
	if testing.Short() {
		t.Skip("compiling the firmware is slow")
	}
	if _, err := exec.LookPath("tinygo"); err != nil {
		t.Skip("tinygo not found:", err)
	}
	config := testConfig(t)
	result, err := Build(context.Background(), config)
	if err != nil {
		t.Fatal("Build failed:", err)
	}
	if result.Manifest.Size == 0 {
		t.Error("firmware image is empty")
	}
}
