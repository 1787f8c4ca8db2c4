package builder

import (
	"fmt"
	"os"

	"github.com/inhies/go-bytesize"
	"github.com/sigurn/crc16"
	"gopkg.in/yaml.v2"
)

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// Checksum returns the CRC-16/XMODEM of an image, as recorded in the
// manifest.
func Checksum(rom []byte) uint16 {
	return crc16.Checksum(rom, crcTable)
}

// Manifest describes a firmware image.
type Manifest struct {
	Board       string   `yaml:"board"`
	Target      string   `yaml:"target"`
	LoadAddress string   `yaml:"load-address"`
	Entry       string   `yaml:"entry"`
	Size        uint64   `yaml:"size"`
	Budget      string   `yaml:"budget,omitempty"`
	CRC16       string   `yaml:"crc16"`
	Files       []string `yaml:"files"`
}

func newManifest(config *Config, addr, entry uint64, rom []byte) *Manifest {
	return &Manifest{
		Board:       config.Profile.Name,
		Target:      config.Profile.Target,
		LoadAddress: fmt.Sprintf("%#x", addr),
		Entry:       fmt.Sprintf("%#x", entry),
		Size:        uint64(len(rom)),
		Budget:      config.Profile.SizeBudget,
		CRC16:       fmt.Sprintf("%#04x", Checksum(rom)),
		Files:       []string{ELFName, BinName, HexName},
	}
}

// HumanSize returns the image size in readable form.
func (m *Manifest) HumanSize() string {
	return bytesize.New(float64(m.Size)).String()
}

func (m *Manifest) write(filename string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o666)
}

// ReadManifest reads the manifest of an earlier build.
func ReadManifest(filename string) (*Manifest, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}
