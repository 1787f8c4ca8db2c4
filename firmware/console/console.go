// Package console is the firmware's diagnostic output: a byte sink shared by
// all harts, serialized by a spin lock, with leveled logging on top.
package console

import (
	"fmt"
	"io"
)

// Mask selects which log levels are printed.
type Mask uint8

const (
	Nothing   Mask = 0x0
	ErrorMask Mask = 0x1
	WarnMask  Mask = 0x2
	InfoMask  Mask = 0x4
	DebugMask Mask = 0x8

	// DefaultMask prints everything but debug messages.
	DefaultMask = ErrorMask | WarnMask | InfoMask
)

// Number of lock attempts made on the emergency path before writing without
// the lock.
const emergencySpins = 1 << 16

// Console is the shared diagnostic console.
type Console struct {
	lock SpinLock
	out  io.Writer
	in   io.ByteReader
	mask Mask
}

// New returns a console that prints to out. in may be nil if the device
// cannot receive.
func New(out io.Writer, in io.ByteReader) *Console {
	return &Console{out: out, in: in, mask: DefaultMask}
}

// SetLevel replaces the log mask and returns the previous one.
func (c *Console) SetLevel(mask Mask) Mask {
	c.lock.Lock()
	defer c.lock.Unlock()
	old := c.mask
	c.mask = mask
	return old
}

// Level returns the current log mask.
func (c *Console) Level() Mask {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.mask
}

// crlf turns "\n" into "\r\n" on the way to a serial terminal.
type crlf struct {
	w io.Writer
}

func (t crlf) Write(buf []byte) (int, error) {
	start := 0
	for i, c := range buf {
		if c != '\n' || (i > 0 && buf[i-1] == '\r') {
			continue
		}
		if _, err := t.w.Write(buf[start:i]); err != nil {
			return start, err
		}
		if _, err := t.w.Write([]byte("\r\n")); err != nil {
			return i, err
		}
		start = i + 1
	}
	if _, err := t.w.Write(buf[start:]); err != nil {
		return start, err
	}
	return len(buf), nil
}

// Printf formats one message and writes it while holding the console lock.
func (c *Console) Printf(format string, args ...interface{}) {
	c.lock.Lock()
	defer c.lock.Unlock()
	fmt.Fprintf(crlf{c.out}, format, args...)
}

func (c *Console) logf(level Mask, prefix, format string, args ...interface{}) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.mask&level == 0 {
		return
	}
	if len(format) == 0 || format[len(format)-1] != '\n' {
		format += "\n"
	}
	w := crlf{c.out}
	io.WriteString(w, prefix)
	fmt.Fprintf(w, format, args...)
}

func (c *Console) Errorf(format string, args ...interface{}) {
	c.logf(ErrorMask, "gosbi: error: ", format, args...)
}

func (c *Console) Warnf(format string, args ...interface{}) {
	c.logf(WarnMask, "gosbi: warn: ", format, args...)
}

func (c *Console) Infof(format string, args ...interface{}) {
	c.logf(InfoMask, "gosbi: ", format, args...)
}

func (c *Console) Debugf(format string, args ...interface{}) {
	c.logf(DebugMask, "gosbi: debug: ", format, args...)
}

// Emergency writes line on a path that is about to stop the hart. It waits a
// bounded time for the lock and then writes regardless, so a hart that died
// holding the lock cannot silence the report.
func (c *Console) Emergency(line string) {
	if c.lock.TryLock(emergencySpins) {
		defer c.lock.Unlock()
	}
	io.WriteString(crlf{c.out}, line)
}

// WriteByte writes one raw byte, as requested by the supervisor.
func (c *Console) WriteByte(b byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if w, ok := c.out.(io.ByteWriter); ok {
		return w.WriteByte(b)
	}
	_, err := c.out.Write([]byte{b})
	return err
}

// ReadByte reads one byte from the console input, if there is one.
func (c *Console) ReadByte() (byte, error) {
	if c.in == nil {
		return 0, io.EOF
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.in.ReadByte()
}
