//go:build tinygo && rpi3

package hal

import (
	"device/arm64"
	"runtime"
	"runtime/volatile"
	"time"
	"unsafe"

	"rpiterm/fdt"
	"rpiterm/mbox"
)

// Boot-time locations. The defaults match the initramfs placement in the
// firmware config.txt; change them for a different load layout.
var (
	InitramfsAddr  uintptr = 0x08000000
	InitramfsMax   uintptr = 64 << 20
	DeviceTreeAddr uintptr = 0
)

const (
	gpfsel1   = PeripheralBase + 0x00200004
	gppud     = PeripheralBase + 0x00200094
	gppudclk0 = PeripheralBase + 0x00200098

	auxEnables = PeripheralBase + 0x00215004
	auxMuIO    = PeripheralBase + 0x00215040
	auxMuIER   = PeripheralBase + 0x00215044
	auxMuIIR   = PeripheralBase + 0x00215048
	auxMuLCR   = PeripheralBase + 0x0021504C
	auxMuMCR   = PeripheralBase + 0x00215050
	auxMuLSR   = PeripheralBase + 0x00215054
	auxMuCNTL  = PeripheralBase + 0x00215060
	auxMuBaud  = PeripheralBase + 0x00215068

	consoleWidth  = 640
	consoleHeight = 480
)

var kernelHeap [8 << 20]byte

func reg(addr uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

type rpi3HAL struct {
	uart   *miniUART
	logger *uartLogger
	t      *rpi3Time
	mbox   *rpi3Mailbox
	regs   mmio
	cpu    rpi3CPU
	mem    *rpi3Memory
	fb     Framebuffer
}

// New returns the Raspberry Pi 3 HAL.
//
// UART: mini UART on GPIO14 (TX) / GPIO15 (RX), 115200 8N1.
func New() HAL {
	uart := newMiniUART()
	h := &rpi3HAL{
		uart:   uart,
		logger: &uartLogger{uart: uart},
		t:      newRPi3Time(),
		mbox:   &rpi3Mailbox{},
		mem:    newRPi3Memory(),
	}
	if fb, ok := mbox.AllocateFramebuffer(h.mbox, consoleWidth, consoleHeight); ok {
		h.fb = newMMIOFramebuffer(fb)
	} else {
		h.logger.WriteLineString("boot: framebuffer allocation failed, console mirror disabled")
	}
	return h
}

func (h *rpi3HAL) Logger() Logger       { return h.logger }
func (h *rpi3HAL) Serial() Serial       { return h.uart }
func (h *rpi3HAL) Time() Time           { return h.t }
func (h *rpi3HAL) Mailbox() Mailbox     { return h.mbox }
func (h *rpi3HAL) Registers() Registers { return h.regs }
func (h *rpi3HAL) CPU() CPU             { return h.cpu }
func (h *rpi3HAL) Memory() Memory       { return h.mem }
func (h *rpi3HAL) Display() Display     { return rpi3Display{fb: h.fb} }

type rpi3Display struct {
	fb Framebuffer
}

func (d rpi3Display) Framebuffer() Framebuffer { return d.fb }

type mmio struct{}

func (mmio) Read32(addr uintptr) uint32     { return reg(addr).Get() }
func (mmio) Write32(addr uintptr, v uint32) { reg(addr).Set(v) }

type miniUART struct{}

func newMiniUART() *miniUART {
	reg(auxEnables).SetBits(1)
	reg(auxMuCNTL).Set(0)
	reg(auxMuIER).Set(0)
	reg(auxMuLCR).Set(3)
	reg(auxMuMCR).Set(0)
	reg(auxMuBaud).Set(270)
	reg(auxMuIIR).Set(6)

	// GPIO14/15 -> ALT5, no pull.
	sel := reg(gpfsel1).Get()
	sel &^= (7 << 12) | (7 << 15)
	sel |= (2 << 12) | (2 << 15)
	reg(gpfsel1).Set(sel)
	reg(gppud).Set(0)
	spin(150)
	reg(gppudclk0).Set((1 << 14) | (1 << 15))
	spin(150)
	reg(gppudclk0).Set(0)

	reg(auxMuCNTL).Set(3)
	return &miniUART{}
}

func spin(n int) {
	for i := 0; i < n; i++ {
		arm64.Asm("nop")
	}
}

func (u *miniUART) readByte() byte {
	for reg(auxMuLSR).Get()&0x01 == 0 {
		runtime.Gosched()
	}
	b := byte(reg(auxMuIO).Get())
	if b == '\r' {
		b = '\n'
	}
	return b
}

func (u *miniUART) writeByte(b byte) {
	for reg(auxMuLSR).Get()&0x20 == 0 {
	}
	reg(auxMuIO).Set(uint32(b))
}

func (u *miniUART) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = u.readByte()
	n := 1
	for n < len(p) && reg(auxMuLSR).Get()&0x01 != 0 {
		p[n] = u.readByte()
		n++
	}
	return n, nil
}

func (u *miniUART) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			u.writeByte('\r')
		}
		u.writeByte(b)
	}
	return len(p), nil
}

type uartLogger struct {
	uart *miniUART
}

func (l *uartLogger) WriteLineString(s string) {
	_, _ = l.uart.Write([]byte(s))
	_, _ = l.uart.Write([]byte{'\n'})
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	_, _ = l.uart.Write(b)
	_, _ = l.uart.Write([]byte{'\n'})
}

type rpi3Time struct {
	ch  chan uint64
	seq uint64
}

func newRPi3Time() *rpi3Time {
	t := &rpi3Time{ch: make(chan uint64, 16)}
	go func() {
		ticker := time.NewTicker(1 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			t.seq++
			select {
			case t.ch <- t.seq:
			default:
			}
		}
	}()
	return t
}

func (t *rpi3Time) Ticks() <-chan uint64 { return t.ch }
func (t *rpi3Time) TickHz() uint64       { return 1000 }

// rpi3Mailbox copies requests through a 16-byte aligned bounce buffer; the
// mailbox only carries the upper 28 bits of the address.
type rpi3Mailbox struct {
	buf [mboxBounceWords + 4]uint32
}

const mboxBounceWords = 36

func (m *rpi3Mailbox) aligned() []uint32 {
	base := uintptr(unsafe.Pointer(&m.buf[0]))
	off := int((16 - base%16) % 16 / 4)
	return m.buf[off : off+mboxBounceWords]
}

func (m *rpi3Mailbox) Call(channel uint8, msg []uint32) bool {
	if len(msg) > mboxBounceWords {
		return false
	}
	buf := m.aligned()
	copy(buf, msg)
	addr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	word := (addr &^ 0xF) | uint32(channel&0xF)

	for reg(MailboxStatus).Get()&mailboxFull != 0 {
	}
	reg(MailboxWrite).Set(word)
	for {
		for reg(MailboxStatus).Get()&mailboxEmpty != 0 {
			runtime.Gosched()
		}
		if reg(MailboxRead).Get() == word {
			break
		}
	}
	copy(msg, buf[:len(msg)])
	return buf[1] == mbox.ResponseOK
}

type rpi3CPU struct{}

// EnterUser performs the EL1 -> EL0 exception return. No EL0 vector is
// installed, so control never comes back to this frame once eret runs.
func (rpi3CPU) EnterUser(uc UserContext) error {
	if err := checkUserContext(uc); err != nil {
		return err
	}
	arm64.AsmFull(`
		msr elr_el1, {entry}
		msr spsr_el1, {spsr}
		msr sp_el0, {sp}
		eret
	`, map[string]interface{}{
		"entry": uc.Entry,
		"spsr":  uc.SPSR,
		"sp":    uc.StackTop,
	})
	for {
	}
}

type rpi3Memory struct {
	initramfs []byte
	dtb       []byte
}

func newRPi3Memory() *rpi3Memory {
	m := &rpi3Memory{
		initramfs: unsafe.Slice((*byte)(unsafe.Pointer(InitramfsAddr)), InitramfsMax),
	}
	if DeviceTreeAddr != 0 {
		hdr := unsafe.Slice((*byte)(unsafe.Pointer(DeviceTreeAddr)), 8)
		size := uint32(hdr[4])<<24 | uint32(hdr[5])<<16 | uint32(hdr[6])<<8 | uint32(hdr[7])
		m.dtb = unsafe.Slice((*byte)(unsafe.Pointer(DeviceTreeAddr)), size)
		if start, end, ok := fdt.InitrdRange(m.dtb); ok {
			m.initramfs = unsafe.Slice((*byte)(unsafe.Pointer(uintptr(start))), end-start)
		}
	}
	return m
}

func (m *rpi3Memory) Initramfs() []byte  { return m.initramfs }
func (m *rpi3Memory) DeviceTree() []byte { return m.dtb }
func (m *rpi3Memory) Heap() []byte       { return kernelHeap[:] }
func (m *rpi3Memory) HeapBase() uintptr  { return uintptr(unsafe.Pointer(&kernelHeap[0])) }

type mmioFramebuffer struct {
	width  int
	height int
	stride int
	buf    []byte
}

func newMMIOFramebuffer(fb mbox.Framebuffer) *mmioFramebuffer {
	return &mmioFramebuffer{
		width:  int(fb.Width),
		height: int(fb.Height),
		stride: int(fb.Pitch),
		buf:    unsafe.Slice((*byte)(unsafe.Pointer(uintptr(fb.Addr))), fb.Size),
	}
}

func (f *mmioFramebuffer) Width() int          { return f.width }
func (f *mmioFramebuffer) Height() int         { return f.height }
func (f *mmioFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *mmioFramebuffer) StrideBytes() int    { return f.stride }
func (f *mmioFramebuffer) Buffer() []byte      { return f.buf }
func (f *mmioFramebuffer) Present() error      { return nil }

func (f *mmioFramebuffer) ClearRGB(r, g, b uint8) {
	pixel := rgb565(r, g, b)
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for i := 0; i+1 < len(f.buf); i += 2 {
		f.buf[i] = lo
		f.buf[i+1] = hi
	}
}
