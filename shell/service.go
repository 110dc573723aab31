// Package shell is the kernel's serial command interpreter.
package shell

import (
	"bufio"
	"fmt"
	"io"

	"rpiterm/hal"
	"rpiterm/initramfs"
	"rpiterm/kernel"
	"rpiterm/mbox"
	"rpiterm/mm"
)

const (
	Prompt          = "# "
	notFoundMessage = "Command not found! Type <help> for commands.\n\n"
)

// Config wires the shell to the kernel collaborators.
type Config struct {
	// In is the serial byte source. Reads block until input arrives.
	In io.Reader
	// Out receives echo and command output. It must be safe for concurrent
	// use: timer callbacks write to it from the tick goroutine.
	Out io.Writer
	Log hal.Logger

	Archive    initramfs.Archive
	DeviceTree []byte
	Mailbox    mbox.Caller
	Registers  hal.Registers
	CPU        hal.CPU
	Session    *mm.Session
	Heap       *mm.Heap
	System     *kernel.System
}

type Shell struct {
	Config

	in   *bufio.Reader
	line Line
	// err is a read failure hit by a nested prompt; Run returns it.
	err error
}

func New(cfg Config) *Shell {
	return &Shell{Config: cfg, in: bufio.NewReaderSize(cfg.In, 64)}
}

// Run prints the banner and serves command lines until the byte source
// fails.
func (s *Shell) Run() error {
	s.print(banner)
	for {
		s.print(Prompt)
		s.line.Clear()
		if err := ReadLine(s.in, s.Out, &s.line); err != nil {
			return err
		}
		s.dispatch(s.line.Bytes())
		if s.err != nil {
			return s.err
		}
	}
}

const banner = "\r\n" +
	"=======================================\r\n" +
	"      Welcome to RPI Terminal!         \r\n" +
	"=======================================\r\n" +
	" Type 'help' to see available commands \r\n" +
	"=======================================\r\n"

func (s *Shell) dispatch(line []byte) {
	if len(line) == 0 {
		return
	}
	cmd, args := splitSpace(line)
	r, ok := lookup(cmd)
	if !ok {
		s.print(notFoundMessage)
		return
	}
	s.run(r, args)
}

// run executes a handler. Errors and panics end the command, never the loop.
func (s *Shell) run(r route, args []byte) {
	defer func() {
		if p := recover(); p != nil {
			s.logf("shell: %s panicked: %v", r.keyword, p)
			s.printf("%s: internal error\n", r.keyword)
		}
	}()
	if err := r.run(s, args); err != nil {
		s.printf("%s: %v\n", r.keyword, err)
	}
}

// readArg reads a nested line for commands that prompt for their argument.
// It reuses the command line buffer.
func (s *Shell) readArg(prompt string) ([]byte, bool) {
	s.print(prompt)
	s.line.Clear()
	if err := ReadLine(s.in, s.Out, &s.line); err != nil {
		s.err = err
		return nil, false
	}
	return s.line.Bytes(), true
}

// resolve looks path up in the archive, walking it from the start. On failure
// it prints the diagnostic itself.
func (s *Shell) resolve(cmd string, path []byte) ([]byte, bool) {
	it := s.Archive.Entries()
	for it.Next() {
		e := it.Entry()
		if e.IsTrailer() {
			break
		}
		if e.Path == string(path) {
			return e.Data, true
		}
	}
	if err := it.Err(); err != nil {
		s.logf("shell: %s: %v", cmd, err)
		s.print("cpio parse error\n")
		return nil, false
	}
	s.printf("%s: %s: No such file or directory\n", cmd, path)
	return nil, false
}

func (s *Shell) print(str string) {
	_, _ = io.WriteString(s.Out, str)
}

func (s *Shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.Out, format, args...)
}

func (s *Shell) logf(format string, args ...any) {
	if s.Log == nil {
		return
	}
	s.Log.WriteLineString(fmt.Sprintf(format, args...))
}
