//go:build !tinygo

package hal

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// hostSerial turns the process terminal into a raw serial line.
//
// A single pump goroutine owns the input file for the life of the process,
// so the line survives board resets the way a real UART cable does.
type hostSerial struct {
	mu   sync.Mutex
	w    io.Writer
	crlf bool

	in    chan byte
	keys  chan byte
	errMu sync.Mutex
	err   error

	reset chan struct{}

	restore func()
}

func newHostSerial(r io.Reader, w io.Writer) *hostSerial {
	s := &hostSerial{
		w:     w,
		in:    make(chan byte, 4096),
		keys:  make(chan byte, 64),
		reset: make(chan struct{}, 1),
	}
	if f, ok := r.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		fd := int(f.Fd())
		if st, err := term.MakeRaw(fd); err == nil {
			s.crlf = true
			s.restore = func() { _ = term.Restore(fd, st) }
		}
	}
	go s.pump(r)
	return s
}

// escapeByte (Ctrl-]) hangs up the line when the terminal is in raw mode,
// since Ctrl-C and Ctrl-D are delivered to the kernel as plain bytes.
const escapeByte = 0x1d

func (s *hostSerial) pump(r io.Reader) {
	var buf [256]byte
	for {
		n, err := r.Read(buf[:])
		for _, b := range buf[:n] {
			if b == escapeByte && s.crlf {
				err = io.EOF
				break
			}
			if b == '\r' {
				b = '\n'
			}
			s.in <- b
		}
		if err != nil {
			s.errMu.Lock()
			s.err = err
			s.errMu.Unlock()
			close(s.in)
			return
		}
	}
}

func (s *hostSerial) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	select {
	case <-s.reset:
		return 0, ErrReset
	case b, ok := <-s.in:
		if !ok {
			return 0, s.readErr()
		}
		p[0] = b
	case b := <-s.keys:
		p[0] = b
		return 1, nil
	}
	n := 1
	for n < len(p) {
		select {
		case b, ok := <-s.in:
			if !ok {
				return n, nil
			}
			p[n] = b
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}

func (s *hostSerial) readErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		return io.EOF
	}
	return s.err
}

func (s *hostSerial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.crlf {
		return s.w.Write(p)
	}
	// Raw mode: the terminal no longer maps LF to CRLF.
	out := bytes.ReplaceAll(p, []byte{'\n'}, []byte{'\r', '\n'})
	if _, err := s.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// typeByte delivers a byte typed into the framebuffer window. It is dropped
// when the line is backed up.
func (s *hostSerial) typeByte(b byte) {
	select {
	case s.keys <- b:
	default:
	}
}

// triggerReset makes the next Read return ErrReset.
func (s *hostSerial) triggerReset() {
	select {
	case s.reset <- struct{}{}:
	default:
	}
}

func (s *hostSerial) close() {
	if s.restore != nil {
		s.restore()
	}
}
