package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var ErrNotImplemented = errors.New("not implemented")

// ErrReset is returned by the serial source once a watchdog reset has fired.
var ErrReset = errors.New("board reset")

// Serial is the raw console line (mini UART on the board).
//
// Read blocks until at least one byte is available. Carriage returns are
// delivered as line feeds.
type Serial interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Time provides a base tick stream.
type Time interface {
	Ticks() <-chan uint64
	// TickHz is the number of ticks per second.
	TickHz() uint64
}

// Mailbox is the ARM -> VideoCore mailbox.
//
// Call submits msg on channel and waits for the response, which the firmware
// writes back into msg. It reports whether the firmware accepted the request.
type Mailbox interface {
	Call(channel uint8, msg []uint32) bool
}

// Registers provides access to memory-mapped peripheral registers.
type Registers interface {
	Read32(addr uintptr) uint32
	Write32(addr uintptr, v uint32)
}

// UserContext is the register state installed by CPU.EnterUser.
type UserContext struct {
	// Entry is written to ELR_EL1.
	Entry uintptr
	// StackTop is written to SP_EL0.
	StackTop uintptr
	// SPSR is written to SPSR_EL1. Zero selects EL0t with DAIF clear.
	SPSR uint64
}

// CPU performs exception-level transitions.
type CPU interface {
	// EnterUser drops to EL0 at uc.Entry using uc.StackTop.
	//
	// It does not return once the transition has started. A returned error
	// means the transition was refused and the CPU is still at EL1.
	EnterUser(uc UserContext) error
}

// Memory exposes the fixed memory regions handed over by the boot loader.
type Memory interface {
	// Initramfs is the cpio newc archive. It must not be modified.
	Initramfs() []byte
	// DeviceTree is the flattened device tree blob, or nil.
	DeviceTree() []byte
	// Heap is the region managed by the kernel allocators.
	Heap() []byte
	// HeapBase is the address of Heap()[0] as seen by the CPU.
	HeapBase() uintptr
}

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// HAL provides the only contact point between the kernel and the hardware.
type HAL interface {
	Logger() Logger
	Serial() Serial
	Time() Time
	Mailbox() Mailbox
	Registers() Registers
	CPU() CPU
	Memory() Memory
	Display() Display
}
