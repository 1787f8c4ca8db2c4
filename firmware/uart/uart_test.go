package uart

import (
	"testing"
	"unsafe"
)

func TestNS16550AWrite(t *testing.T) {
	var regs [2]uint32
	lsr := (*[8]byte)(unsafe.Pointer(&regs))
	lsr[ns16550LSR] = ns16550LSR_THRE

	u := NewNS16550A(unsafe.Pointer(&regs))
	n, err := u.Write([]byte("ok"))
	if n != 2 || err != nil {
		t.Fatalf("Write returned %d, %v, want 2, nil", n, err)
	}
	// The holding register keeps the last byte written.
	if lsr[ns16550THR] != 'k' {
		t.Errorf("THR = %q, want 'k'", lsr[ns16550THR])
	}
}

func TestNS16550ARead(t *testing.T) {
	var regs [2]uint32
	b := (*[8]byte)(unsafe.Pointer(&regs))
	u := NewNS16550A(unsafe.Pointer(&regs))

	if _, err := u.ReadByte(); err != ErrNoData {
		t.Errorf("ReadByte on an empty FIFO returned %v, want ErrNoData", err)
	}

	b[ns16550RBR] = 'x'
	b[ns16550LSR] = ns16550LSR_DR
	if c, err := u.ReadByte(); err != nil || c != 'x' {
		t.Errorf("ReadByte returned %q, %v, want 'x', nil", c, err)
	}
}

func TestSiFive(t *testing.T) {
	var regs [4]uint32
	u := NewSiFive(unsafe.Pointer(&regs))

	u.Write([]byte{'a'})
	if regs[0] != 'a' {
		t.Errorf("txdata = %#x, want 'a'", regs[0])
	}

	regs[1] = sifiveRXDATA_EMPTY
	if _, err := u.ReadByte(); err != ErrNoData {
		t.Errorf("ReadByte with rxdata.empty set returned %v, want ErrNoData", err)
	}
	regs[1] = 'z'
	if c, err := u.ReadByte(); err != nil || c != 'z' {
		t.Errorf("ReadByte returned %q, %v, want 'z', nil", c, err)
	}
}
