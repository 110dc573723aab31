// Package app boots the kernel on a HAL: it carves the heap, starts the tick
// and console goroutines, and hands the serial line to the shell.
package app

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"rpiterm/console"
	"rpiterm/hal"
	"rpiterm/initramfs"
	"rpiterm/kernel"
	"rpiterm/mbox"
	"rpiterm/mm"
	"rpiterm/shell"
)

// sessionShare is the fraction of the heap given to the session allocator.
// The rest is managed by the page and chunk allocators.
const sessionShare = 4

type system struct {
	h       hal.HAL
	log     hal.Logger
	out     io.Writer
	mirror  *console.Mirror
	sys     *kernel.System
	session *mm.Session
	heap    *mm.Heap
}

func newSystem(h hal.HAL) (*system, error) {
	mem := h.Memory()
	if mem == nil {
		return nil, fmt.Errorf("boot: no memory map")
	}
	region := mem.Heap()
	split := len(region) / sessionShare &^ (mm.PageSize - 1)
	if split == 0 || len(region)-split < mm.PageSize {
		return nil, fmt.Errorf("boot: heap of %d bytes is too small", len(region))
	}
	base := mem.HeapBase()

	var mirror *console.Mirror
	if d := h.Display(); d != nil {
		mirror = console.NewMirror(d.Framebuffer())
	}

	s := &system{
		h:       h,
		log:     h.Logger(),
		out:     console.NewTee(h.Serial(), mirror),
		mirror:  mirror,
		sys:     kernel.NewSystem(h.Time(), h.Logger()),
		session: mm.NewSession(base, region[:split]),
		heap:    mm.NewHeap(mm.NewBuddy(base+uintptr(split), region[split:])),
	}
	s.logf("boot: session heap %#x-%#x, page heap %#x-%#x (%d pages)",
		base, base+uintptr(split), base+uintptr(split), base+uintptr(len(region)), s.heap.Pages().Pages())
	s.logf("boot: initramfs %d bytes, dtb %d bytes", len(mem.Initramfs()), len(mem.DeviceTree()))
	s.logBoard(h.Mailbox())
	return s, nil
}

func (s *system) logBoard(c mbox.Caller) {
	model, ok := mbox.BoardModel(c)
	if !ok {
		s.logf("boot: board model unavailable")
		return
	}
	serial, ok := mbox.BoardSerial(c)
	if !ok {
		s.logf("boot: board model %#x, serial unavailable", model)
		return
	}
	s.logf("boot: board model %#x serial %016x", model, serial)
}

func (s *system) shell() *shell.Shell {
	mem := s.h.Memory()
	return shell.New(shell.Config{
		In:         s.h.Serial(),
		Out:        s.out,
		Log:        s.log,
		Archive:    initramfs.New(mem.Initramfs()),
		DeviceTree: mem.DeviceTree(),
		Mailbox:    s.h.Mailbox(),
		Registers:  s.h.Registers(),
		CPU:        s.h.CPU(),
		Session:    s.session,
		Heap:       s.heap,
		System:     s.sys,
	})
}

// Run boots the kernel and serves the shell until the serial line fails.
// The returned error is the shell's: hal.ErrReset after a watchdog reset.
//
// Background goroutines stop when Run returns.
func Run(ctx context.Context, h hal.HAL) (err error) {
	s, err := newSystem(h)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.guard("timer", func() error { return s.sys.Run(gctx) }))
	if s.mirror != nil {
		g.Go(s.guard("console", func() error { return s.mirror.Run(gctx) }))
	}

	defer func() {
		cancel()
		if gerr := g.Wait(); err == nil && gerr != nil && gerr != context.Canceled {
			err = gerr
		}
	}()
	return s.guard("shell", s.shell().Run)()
}

// guard turns a panic in fn into a panic report and an error.
func (s *system) guard(name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				reportPanic(s.h, name, p, debug.Stack())
				err = fmt.Errorf("%s: panic: %v", name, p)
			}
		}()
		return fn()
	}
}

func (s *system) logf(format string, args ...any) {
	if s.log == nil {
		return
	}
	s.log.WriteLineString(fmt.Sprintf(format, args...))
}
