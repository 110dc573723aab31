// Package console mirrors the serial terminal onto the framebuffer.
package console

import (
	"context"
	"io"
	"sync"
	"time"

	"rpiterm/hal"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

const (
	fontHeight = 10
	fontOffset = 6

	// FlushInterval is how often pending output is pushed to the framebuffer.
	FlushInterval = 33 * time.Millisecond
)

// Mirror renders terminal output (including VT100 sequences) on a
// framebuffer. Writes only update the back buffer; Run presents them.
type Mirror struct {
	mu    sync.Mutex
	d     *fbDisplay
	t     *tinyterm.Terminal
	dirty bool
}

// NewMirror returns nil when fb is nil or not RGB565.
func NewMirror(fb hal.Framebuffer) *Mirror {
	if fb == nil || fb.Format() != hal.PixelFormatRGB565 || fb.Width() <= 0 || fb.Height() <= 0 {
		return nil
	}
	m := &Mirror{d: newFBDisplay(fb)}
	m.t = tinyterm.NewTerminal(m.d)
	m.t.Configure(&tinyterm.Config{
		Font:       &proggy.TinySZ8pt7b,
		FontHeight: fontHeight,
		FontOffset: fontOffset,
	})
	fb.ClearRGB(0, 0, 0)
	_ = fb.Present()
	return m
}

func (m *Mirror) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.t.Write(p)
	m.dirty = true
	return n, err
}

// Flush presents pending output.
func (m *Mirror) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty {
		return nil
	}
	m.dirty = false
	return m.d.Display()
}

// Run flushes pending output every FlushInterval until ctx is done.
func (m *Mirror) Run(ctx context.Context) error {
	t := time.NewTicker(FlushInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = m.Flush()
			return ctx.Err()
		case <-t.C:
			if err := m.Flush(); err != nil {
				return err
			}
		}
	}
}

// Tee writes terminal output to the serial line and, when present, the
// mirror. Writers on different goroutines (the shell and timer callbacks) see
// their writes kept whole and in the same order on both sinks.
type Tee struct {
	mu     sync.Mutex
	serial io.Writer
	mirror *Mirror
}

func NewTee(serial io.Writer, mirror *Mirror) *Tee {
	return &Tee{serial: serial, mirror: mirror}
}

func (t *Tee) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.serial.Write(p)
	if t.mirror != nil {
		_, _ = t.mirror.Write(p)
	}
	return n, err
}
