//go:build !tinygo && cgo

package hal

import (
	"context"
	"errors"
	"fmt"
	"image"

	"rpiterm/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunWindow shows the framebuffer in a desktop window while run executes on
// its own goroutine. It blocks until run returns or the window closes.
func RunWindow(ctx context.Context, h HAL, run func(context.Context) error) error {
	hh, ok := h.(*hostHAL)
	if !ok {
		return fmt.Errorf("window runner needs the host HAL, got %T", h)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- run(runCtx) }()

	g := &hostGame{h: hh, ctx: ctx, done: done, kbd: &windowKeyboard{out: hh.serial.typeByte}}
	ebiten.SetWindowTitle("rpiterm (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(hh.fb.width, hh.fb.height)
	ebiten.SetTPS(60)
	err := ebiten.RunGame(g)
	if errors.Is(err, ebiten.Termination) {
		return g.runErr
	}
	return err
}

type hostGame struct {
	h    *hostHAL
	ctx  context.Context
	done <-chan error
	kbd  *windowKeyboard

	runErr error
	seen   uint64
	img    *image.RGBA
	fbImg  *ebiten.Image
	scr    []byte
}

func (g *hostGame) Update() error {
	g.h.t.step()
	g.kbd.poll()
	select {
	case g.runErr = <-g.done:
		return ebiten.Termination
	case <-g.ctx.Done():
		g.runErr = g.ctx.Err()
		return ebiten.Termination
	default:
		return nil
	}
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scr = make([]byte, len(fb.buf))
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	if seen, ok := fb.snapshotRGB565(g.scr, g.seen); ok {
		g.seen = seen
		src := g.scr
		dst := g.img.Pix
		for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
			r, gg, b := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
			j := (i / 2) * 4
			dst[j+0] = r
			dst[j+1] = gg
			dst[j+2] = b
			dst[j+3] = 0xFF
		}
		g.fbImg.WritePixels(g.img.Pix)
	}
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
