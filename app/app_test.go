package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"rpiterm/hal"
	"rpiterm/mbox"
)

type fakeSerial struct {
	r io.Reader

	mu  sync.Mutex
	out bytes.Buffer
}

func (s *fakeSerial) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *fakeSerial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Write(p)
}

func (s *fakeSerial) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.String()
}

type panicReader struct{}

func (panicReader) Read([]byte) (int, error) { panic("uart wedged") }

type fakeLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *fakeLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, s)
}

func (l *fakeLogger) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

func (l *fakeLogger) contains(s string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}

type idleTime struct{ ch chan uint64 }

func (t idleTime) Ticks() <-chan uint64 { return t.ch }
func (t idleTime) TickHz() uint64       { return 1000 }

type fakeMemory struct {
	heap []byte
}

func (m fakeMemory) Initramfs() []byte  { return nil }
func (m fakeMemory) DeviceTree() []byte { return nil }
func (m fakeMemory) Heap() []byte       { return m.heap }
func (m fakeMemory) HeapBase() uintptr  { return 0x10000000 }

// identityMailbox answers the board model and serial tags.
type identityMailbox struct {
	serial uint64
}

func (m identityMailbox) Call(channel uint8, msg []uint32) bool {
	if channel != mbox.ChannelTags || len(msg) < 8 {
		return false
	}
	switch msg[2] {
	case mbox.TagGetBoardModel:
		msg[5] = 0
	case mbox.TagGetBoardSerial:
		msg[5], msg[6] = uint32(m.serial), uint32(m.serial>>32)
	default:
		return false
	}
	msg[4] = 0x80000000 | msg[3]
	msg[1] = mbox.ResponseOK
	return true
}

type fakeHAL struct {
	log    *fakeLogger
	serial *fakeSerial
	mem    fakeMemory
	mb     hal.Mailbox
}

func newFakeHAL(r io.Reader, heapBytes int) *fakeHAL {
	return &fakeHAL{
		log:    &fakeLogger{},
		serial: &fakeSerial{r: r},
		mem:    fakeMemory{heap: make([]byte, heapBytes)},
	}
}

func (h *fakeHAL) Logger() hal.Logger       { return h.log }
func (h *fakeHAL) Serial() hal.Serial       { return h.serial }
func (h *fakeHAL) Time() hal.Time           { return idleTime{ch: make(chan uint64)} }
func (h *fakeHAL) Mailbox() hal.Mailbox     { return h.mb }
func (h *fakeHAL) Registers() hal.Registers { return nil }
func (h *fakeHAL) CPU() hal.CPU             { return nil }
func (h *fakeHAL) Memory() hal.Memory       { return h.mem }
func (h *fakeHAL) Display() hal.Display     { return nil }

func TestRunServesShellUntilEOF(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newFakeHAL(strings.NewReader("hello\nkmalloc\n100\n"), 1<<20)
	err := Run(context.Background(), h)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Run=%v, want io.EOF", err)
	}
	out := h.serial.String()
	if !strings.Contains(out, "Hello World!\r\n") {
		t.Fatalf("missing hello output:\n%q", out)
	}
	// The page heap starts at 0x10040000 with 192 pages: an order-7 block
	// and an order-6 block at page 128, which serves the first chunk page.
	if !strings.Contains(out, "address: 0x100c0000\n") {
		t.Fatalf("kmalloc did not use the page heap:\n%q", out)
	}
	if !h.log.contains("boot: session heap 0x10000000-0x10040000") {
		t.Fatalf("boot layout not logged: %q", h.log.lines)
	}
}

func TestBootLogsBoardIdentity(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newFakeHAL(strings.NewReader(""), 1<<20)
	h.mb = identityMailbox{serial: 0x00000001deadbeef}
	if err := Run(context.Background(), h); !errors.Is(err, io.EOF) {
		t.Fatalf("Run=%v, want io.EOF", err)
	}
	if !h.log.contains("boot: board model 0x0 serial 00000001deadbeef") {
		t.Fatalf("board identity not logged: %q", h.log.lines)
	}

	h = newFakeHAL(strings.NewReader(""), 1<<20)
	if err := Run(context.Background(), h); !errors.Is(err, io.EOF) {
		t.Fatalf("Run=%v, want io.EOF", err)
	}
	if !h.log.contains("boot: board model unavailable") {
		t.Fatalf("missing mailbox not logged: %q", h.log.lines)
	}
}

func TestRunReportsShellPanic(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newFakeHAL(panicReader{}, 1<<20)
	err := Run(context.Background(), h)
	if err == nil || !strings.Contains(err.Error(), "shell: panic: uart wedged") {
		t.Fatalf("Run=%v", err)
	}
	if !h.log.contains("Kernel Panic:") || !h.log.contains("panic: uart wedged") {
		t.Fatalf("panic not logged: %q", h.log.lines)
	}
}

func TestRunRejectsTinyHeap(t *testing.T) {
	h := newFakeHAL(strings.NewReader(""), 4096)
	if err := Run(context.Background(), h); err == nil {
		t.Fatalf("Run accepted a one-page heap")
	}
}

func TestTakeRunes(t *testing.T) {
	head, rest := takeRunes("héllo", 2)
	if head != "hé" || rest != "llo" {
		t.Fatalf("takeRunes=%q %q", head, rest)
	}
	head, rest = takeRunes("ok", 5)
	if head != "ok" || rest != "" {
		t.Fatalf("takeRunes=%q %q", head, rest)
	}
}
