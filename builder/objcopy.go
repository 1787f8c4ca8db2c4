package builder

import (
	"debug/elf"
	"io"
	"os"
	"sort"

	"github.com/marcinbor85/gohex"
)

// maxPadBytes is the maximum allowed bytes to be padded in a rom extraction
const maxPadBytes = 4000

// objcopyError is an error returned by functions that act like objcopy.
type objcopyError struct {
	Op  string
	Err error
}

func (e objcopyError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e objcopyError) Unwrap() error {
	return e.Err
}

type progSlice []*elf.Prog

func (s progSlice) Len() int           { return len(s) }
func (s progSlice) Less(i, j int) bool { return s[i].Paddr < s[j].Paddr }
func (s progSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// extractROM extracts a firmware image, its load address and its entry point
// from the given ELF file. It tries to emulate the behavior of objcopy.
//
// Segments without file contents (.bss, the stacks and the heap) are not part
// of the image: the firmware clears or ignores that memory itself.
func extractROM(path string) (addr, entry uint64, rom []byte, err error) {
	f, err := elf.Open(path)
	if err != nil {
		return 0, 0, nil, objcopyError{"failed to open ELF file to extract text segment", err}
	}
	defer f.Close()

	// Find the lowest section address.
	startAddr := ^uint64(0)
	for _, section := range f.Sections {
		if section.Type != elf.SHT_PROGBITS || section.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		if section.Addr < startAddr {
			startAddr = section.Addr
		}
	}

	progs := make(progSlice, 0, 2)
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 || prog.Off == 0 {
			continue
		}
		progs = append(progs, prog)
	}
	if len(progs) == 0 {
		return 0, 0, nil, objcopyError{"file does not contain ROM segments: " + path, nil}
	}
	sort.Sort(progs)

	for _, prog := range progs {
		romEnd := progs[0].Paddr + uint64(len(rom))
		if prog.Paddr != romEnd {
			diff := prog.Paddr - romEnd
			if prog.Paddr < romEnd || diff > maxPadBytes {
				return 0, 0, nil, objcopyError{"ROM segments are non-contiguous: " + path, nil}
			}
			// The linker inserted alignment padding between segments.
			rom = append(rom, make([]byte, diff)...)
		}
		data, err := io.ReadAll(prog.Open())
		if err != nil {
			return 0, 0, nil, objcopyError{"failed to extract segment from ELF file: " + path, err}
		}
		rom = append(rom, data...)
	}
	if startAddr != ^uint64(0) && progs[0].Paddr < startAddr {
		// Some data is loaded before the first section. Drop it, like objcopy.
		return startAddr, f.Entry, rom[startAddr-progs[0].Paddr:], nil
	}
	return progs[0].Paddr, f.Entry, rom, nil
}

// writeBin writes the raw image. The load address is not stored in the file.
func writeBin(outfile string, rom []byte) error {
	return os.WriteFile(outfile, rom, 0o666)
}

// writeHex writes the image as an Intel HEX file, including the load and
// start address.
func writeHex(outfile string, addr, entry uint64, rom []byte) error {
	f, err := os.OpenFile(outfile, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return err
	}
	defer f.Close()

	mem := gohex.NewMemory()
	mem.SetStartAddress(uint32(entry))
	if err := mem.AddBinary(uint32(addr), rom); err != nil {
		return objcopyError{"failed to create .hex file", err}
	}
	if err := mem.DumpIntelHex(f, 16); err != nil {
		return objcopyError{"failed to write .hex file", err}
	}
	return f.Close()
}
