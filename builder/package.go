package builder

import (
	"errors"
	"fmt"

	"github.com/inhies/go-bytesize"
)

var ErrTooLarge = errors.New("firmware image exceeds the size budget")

// Package converts the ELF file into the loadable images and writes the
// manifest. It fails if the image is over the board's size budget; the
// images are written regardless, so they can be inspected.
func Package(config *Config, elfFile string) (*Result, error) {
	addr, entry, rom, err := extractROM(elfFile)
	if err != nil {
		return nil, err
	}
	if addr != config.Profile.LoadAddress {
		return nil, fmt.Errorf("image starts at %#x, board %s loads firmware at %#x", addr, config.Profile.Name, config.Profile.LoadAddress)
	}

	result := &Result{
		ELF:      elfFile,
		Bin:      config.path(BinName),
		Hex:      config.path(HexName),
		Manifest: newManifest(config, addr, entry, rom),
	}
	if err := writeBin(result.Bin, rom); err != nil {
		return nil, err
	}
	if err := writeHex(result.Hex, addr, entry, rom); err != nil {
		return nil, err
	}
	if err := result.Manifest.write(config.path(ManifestName)); err != nil {
		return nil, err
	}

	budget, err := config.Profile.Budget()
	if err != nil {
		return nil, err
	}
	if budget != 0 && bytesize.ByteSize(len(rom)) > budget {
		return result, fmt.Errorf("%w: %s > %s", ErrTooLarge, bytesize.New(float64(len(rom))), budget)
	}
	return result, nil
}
