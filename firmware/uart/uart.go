// Package uart contains the console devices the firmware can print to. The
// devices are assumed to be configured (baud rate, framing) by an earlier
// boot stage; these drivers only move bytes.
package uart

import (
	"errors"
	"unsafe"

	"github.com/gosbi/gosbi/firmware/mmio"
)

// ErrNoData is returned by ReadByte when the receive FIFO is empty.
var ErrNoData = errors.New("uart: no data")

// NS16550A is the 16550-compatible UART found on the QEMU virt machine.
type NS16550A struct {
	base unsafe.Pointer
}

const (
	ns16550RBR = 0 // receive buffer (read)
	ns16550THR = 0 // transmit holding (write)
	ns16550LSR = 5 // line status

	ns16550LSR_DR   = 1 << 0
	ns16550LSR_THRE = 1 << 5
)

func NewNS16550A(base unsafe.Pointer) NS16550A {
	return NS16550A{base: base}
}

func (u NS16550A) WriteByte(c byte) error {
	for mmio.Load8(mmio.Reg8(u.base, ns16550LSR))&ns16550LSR_THRE == 0 {
	}
	mmio.Store8(mmio.Reg8(u.base, ns16550THR), c)
	return nil
}

func (u NS16550A) Write(buf []byte) (int, error) {
	for _, c := range buf {
		u.WriteByte(c)
	}
	return len(buf), nil
}

func (u NS16550A) ReadByte() (byte, error) {
	if mmio.Load8(mmio.Reg8(u.base, ns16550LSR))&ns16550LSR_DR == 0 {
		return 0, ErrNoData
	}
	return mmio.Load8(mmio.Reg8(u.base, ns16550RBR)), nil
}

// SiFive is the UART of the SiFive FU540/FU740 SoCs.
type SiFive struct {
	base unsafe.Pointer
}

const (
	sifiveTXDATA = 0x00
	sifiveRXDATA = 0x04

	sifiveTXDATA_FULL  = 1 << 31
	sifiveRXDATA_EMPTY = 1 << 31
)

func NewSiFive(base unsafe.Pointer) SiFive {
	return SiFive{base: base}
}

func (u SiFive) WriteByte(c byte) error {
	txdata := mmio.Reg32(u.base, sifiveTXDATA)
	for mmio.Load32(txdata)&sifiveTXDATA_FULL != 0 {
	}
	mmio.Store32(txdata, uint32(c))
	return nil
}

func (u SiFive) Write(buf []byte) (int, error) {
	for _, c := range buf {
		u.WriteByte(c)
	}
	return len(buf), nil
}

func (u SiFive) ReadByte() (byte, error) {
	rx := mmio.Load32(mmio.Reg32(u.base, sifiveRXDATA))
	if rx&sifiveRXDATA_EMPTY != 0 {
		return 0, ErrNoData
	}
	return byte(rx), nil
}
