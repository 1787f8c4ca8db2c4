// Package monitor attaches the local terminal to a board's serial console.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gosbi/gosbi/diagnostics"
	"github.com/mattn/go-tty"
	"go.bug.st/serial"
)

// ExitKey ends a session typed on the local terminal (Ctrl-]).
const ExitKey = 0x1d

var ErrNoPort = errors.New("no serial ports available")

// Config of a monitor session.
type Config struct {
	// Port is the serial device. If empty, the only serial port of the
	// machine is used.
	Port string
	Baud int

	// Output receives console output. Defaults to os.Stdout.
	Output io.Writer

	// Found is called for every fatal report in the console output.
	Found func(diagnostics.Diagnostic)
}

// listPorts is serial.GetPortsList, replaced in tests.
var listPorts = serial.GetPortsList

// SelectPort returns the port to use: the given one, or the only serial port
// present.
func SelectPort(port string) (string, error) {
	if port != "" {
		return port, nil
	}
	ports, err := listPorts()
	if err != nil {
		return "", fmt.Errorf("could not list serial ports: %w", err)
	}
	switch len(ports) {
	case 0:
		return "", ErrNoPort
	case 1:
		return ports[0], nil
	default:
		return "", fmt.Errorf("multiple serial ports available - use -port flag, available ports are %s", strings.Join(ports, ", "))
	}
}

// Monitor connects the terminal to the serial console until ctx is done, the
// exit key is typed or the port goes away.
func Monitor(ctx context.Context, config *Config) error {
	name, err := SelectPort(config.Port)
	if err != nil {
		return err
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: config.Baud})
	if err != nil {
		return fmt.Errorf("could not open %s: %w", name, err)
	}
	defer port.Close()

	term, err := tty.Open()
	if err != nil {
		return fmt.Errorf("could not open terminal: %w", err)
	}
	defer term.Close()

	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "Connected to %s at %d baud. Press Ctrl-] to exit.\r\n", name, config.Baud)
	return Pump(ctx, port, term, diagnostics.NewWatcher(out, config.Found))
}

// Keyboard is the local side of a session.
type Keyboard interface {
	ReadRune() (rune, error)
}

// Pump copies port output to out and keystrokes to port. It returns nil when
// ctx is done or ExitKey is typed. The caller must close port and keys to
// stop the copying goroutines after Pump returns.
func Pump(ctx context.Context, port io.ReadWriter, keys Keyboard, out io.Writer) error {
	errCh := make(chan error, 2)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := port.Read(buf)
			if n > 0 {
				if _, err := out.Write(buf[:n]); err != nil {
					errCh <- err
					return
				}
			}
			if err != nil {
				errCh <- fmt.Errorf("read error: %w", err)
				return
			}
		}
	}()
	go func() {
		for {
			r, err := keys.ReadRune()
			if err != nil {
				errCh <- err
				return
			}
			if r == ExitKey {
				errCh <- nil
				return
			}
			if r == 0 {
				continue
			}
			if _, err := port.Write([]byte(string(r))); err != nil {
				errCh <- fmt.Errorf("write error: %w", err)
				return
			}
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
