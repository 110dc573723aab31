package console

import (
	"image/color"

	"rpiterm/hal"

	"tinygo.org/x/drivers"
)

// fbDisplay adapts a RGB565 hal.Framebuffer to the tinyterm Displayer.
//
// tinyterm scrolls by moving the display start line (the way the ST7789
// vertical scroll works), so drawing goes to a back buffer and Display copies
// it to the framebuffer rotated by the current scroll line.
type fbDisplay struct {
	fb     hal.Framebuffer
	w, h   int
	back   []byte
	scroll int
}

func newFBDisplay(fb hal.Framebuffer) *fbDisplay {
	w, h := fb.Width(), fb.Height()
	return &fbDisplay{fb: fb, w: w, h: h, back: make([]byte, w*h*2)}
}

func (d *fbDisplay) Size() (x, y int16) {
	return int16(d.w), int16(d.h)
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= d.w || iy < 0 || iy >= d.h {
		return
	}
	pixel := rgb565From888(c.R, c.G, c.B)
	off := (iy*d.w + ix) * 2
	d.back[off] = byte(pixel)
	d.back[off+1] = byte(pixel >> 8)
}

func (d *fbDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	x0 := clampInt(int(x), 0, d.w)
	y0 := clampInt(int(y), 0, d.h)
	x1 := clampInt(int(x)+int(width), 0, d.w)
	y1 := clampInt(int(y)+int(height), 0, d.h)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	pixel := rgb565From888(c.R, c.G, c.B)
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for py := y0; py < y1; py++ {
		row := py * d.w * 2
		for px := x0; px < x1; px++ {
			d.back[row+px*2] = lo
			d.back[row+px*2+1] = hi
		}
	}
	return nil
}

func (d *fbDisplay) SetScroll(line int16) {
	if d.h == 0 {
		return
	}
	d.scroll = ((int(line) % d.h) + d.h) % d.h
}

func (d *fbDisplay) SetRotation(rotation drivers.Rotation) error {
	_ = rotation
	return nil
}

// Display copies the back buffer to the framebuffer, starting at the scroll
// line, and presents it.
func (d *fbDisplay) Display() error {
	if d.fb.Format() != hal.PixelFormatRGB565 {
		return nil
	}
	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	rowBytes := d.w * 2
	if rowBytes > stride {
		rowBytes = stride
	}
	for r := 0; r < d.h; r++ {
		src := ((r + d.scroll) % d.h) * d.w * 2
		dst := r * stride
		if dst+rowBytes > len(buf) {
			break
		}
		copy(buf[dst:dst+rowBytes], d.back[src:src+rowBytes])
	}
	return d.fb.Present()
}

func rgb565From888(r, g, b uint8) uint16 {
	return uint16((uint16(r>>3)&0x1F)<<11 | (uint16(g>>2)&0x3F)<<5 | (uint16(b>>3) & 0x1F))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
