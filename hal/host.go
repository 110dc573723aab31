//go:build !tinygo

package hal

import (
	"io"
	"os"

	"go.uber.org/zap"
)

type hostHAL struct {
	logger *hostLogger
	serial *hostSerial
	t      *hostTime
	mbox   *hostMailbox
	regs   *hostRegisters
	cpu    *hostCPU
	mem    *hostMemory
	fb     *hostFramebuffer
}

// New returns a host HAL emulating the board described by cfg. The serial
// line is the process terminal.
func New(cfg BoardConfig, z *zap.Logger) (HAL, error) {
	return newHostHAL(cfg, z, os.Stdin, os.Stdout)
}

func newHostHAL(cfg BoardConfig, z *zap.Logger, r io.Reader, w io.Writer) (*hostHAL, error) {
	logger := newHostLogger(z)
	mem, err := newHostMemory(cfg, logger)
	if err != nil {
		return nil, err
	}
	serial := newHostSerial(r, w)
	return &hostHAL{
		logger: logger,
		serial: serial,
		t:      newHostTime(),
		mbox:   newHostMailbox(cfg),
		regs:   newHostRegisters(logger, serial.triggerReset),
		cpu:    &hostCPU{log: logger},
		mem:    mem,
		fb:     newHostFramebuffer(cfg.FramebufferWidth, cfg.FramebufferHeight),
	}, nil
}

func (h *hostHAL) Logger() Logger       { return h.logger }
func (h *hostHAL) Serial() Serial       { return h.serial }
func (h *hostHAL) Time() Time           { return h.t }
func (h *hostHAL) Mailbox() Mailbox     { return h.mbox }
func (h *hostHAL) Registers() Registers { return h.regs }
func (h *hostHAL) CPU() CPU             { return h.cpu }
func (h *hostHAL) Memory() Memory       { return h.mem }
func (h *hostHAL) Display() Display     { return hostDisplay{fb: h.fb} }

// Close restores the terminal.
func (h *hostHAL) Close() error {
	h.serial.close()
	return nil
}

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }
