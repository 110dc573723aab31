package console

import (
	"bytes"
	"image/color"
	"testing"

	"rpiterm/hal"
)

type testFB struct {
	w, h     int
	buf      []byte
	presents int
}

func newTestFB(w, h int) *testFB {
	return &testFB{w: w, h: h, buf: make([]byte, w*h*2)}
}

func (f *testFB) Width() int              { return f.w }
func (f *testFB) Height() int             { return f.h }
func (f *testFB) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *testFB) StrideBytes() int        { return f.w * 2 }
func (f *testFB) Buffer() []byte          { return f.buf }
func (f *testFB) Present() error          { f.presents++; return nil }

func (f *testFB) ClearRGB(r, g, b uint8) {
	for i := range f.buf {
		f.buf[i] = 0
	}
}

func (f *testFB) pixel(x, y int) uint16 {
	off := y*f.w*2 + x*2
	return uint16(f.buf[off]) | uint16(f.buf[off+1])<<8
}

func TestDisplayScrollRotatesRows(t *testing.T) {
	fb := newTestFB(4, 4)
	d := newFBDisplay(fb)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	d.SetPixel(0, 1, white)

	if err := d.Display(); err != nil {
		t.Fatalf("Display: %v", err)
	}
	if fb.pixel(0, 1) != 0xFFFF {
		t.Fatalf("unscrolled pixel=%#x", fb.pixel(0, 1))
	}

	d.SetScroll(1)
	_ = d.Display()
	if fb.pixel(0, 0) != 0xFFFF || fb.pixel(0, 1) != 0 {
		t.Fatalf("scroll 1: row0=%#x row1=%#x", fb.pixel(0, 0), fb.pixel(0, 1))
	}

	d.SetScroll(-2)
	_ = d.Display()
	if fb.pixel(0, 3) != 0xFFFF {
		t.Fatalf("scroll -2: row3=%#x", fb.pixel(0, 3))
	}
	if fb.presents != 3 {
		t.Fatalf("presents=%d want 3", fb.presents)
	}
}

func TestFillRectangleClips(t *testing.T) {
	fb := newTestFB(4, 4)
	d := newFBDisplay(fb)
	_ = d.FillRectangle(-2, 2, 4, 10, color.RGBA{R: 255, A: 255})
	_ = d.Display()
	if fb.pixel(0, 3) == 0 || fb.pixel(1, 2) == 0 {
		t.Fatalf("fill missing inside clip")
	}
	if fb.pixel(2, 2) != 0 || fb.pixel(0, 1) != 0 {
		t.Fatalf("fill leaked outside rectangle")
	}
}

func TestMirrorRendersText(t *testing.T) {
	fb := newTestFB(160, 40)
	m := NewMirror(fb)
	if m == nil {
		t.Fatalf("NewMirror returned nil")
	}
	if _, err := m.Write([]byte("HELLO")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	presents := fb.presents
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fb.presents != presents+1 {
		t.Fatalf("Flush did not present")
	}
	// Each line feed scrolls, so the line being typed is the bottom one.
	lit := 0
	for y := fb.h - fontHeight; y < fb.h; y++ {
		for x := 0; x < 40; x++ {
			if fb.pixel(x, y) != 0 {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Fatalf("no glyph pixels drawn")
	}

	_ = m.Flush()
	if fb.presents != presents+1 {
		t.Fatalf("clean Flush presented again")
	}
}

func TestNewMirrorWithoutFramebuffer(t *testing.T) {
	if m := NewMirror(nil); m != nil {
		t.Fatalf("NewMirror(nil) = %v", m)
	}
}

func TestTeeWithoutMirror(t *testing.T) {
	var serial bytes.Buffer
	tee := NewTee(&serial, nil)
	if _, err := tee.Write([]byte("# ")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if serial.String() != "# " {
		t.Fatalf("serial=%q", serial.String())
	}
}
