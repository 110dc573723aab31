//go:build !tinygo && cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// windowKeyboard turns keys typed into the framebuffer window into bytes on
// the serial line, the way a USB keyboard on a terminal server would.
type windowKeyboard struct {
	out func(b byte)
}

// keyBytes maps non-text keys to what a serial terminal sends for them, with
// CR already delivered as LF.
var keyBytes = []struct {
	key ebiten.Key
	b   byte
}{
	{ebiten.KeyEnter, '\n'},
	{ebiten.KeyNumpadEnter, '\n'},
	{ebiten.KeyBackspace, 0x7f},
	{ebiten.KeyTab, '\t'},
	{ebiten.KeyEscape, 0x1b},
}

func (k *windowKeyboard) poll() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	if ctrl {
		for key := ebiten.KeyA; key <= ebiten.KeyZ; key++ {
			if inpututil.IsKeyJustPressed(key) {
				k.out(byte(key-ebiten.KeyA) + 1)
			}
		}
		return
	}

	for _, r := range ebiten.AppendInputChars(nil) {
		if r < 0x80 {
			k.out(byte(r))
		}
	}
	for _, kb := range keyBytes {
		if inpututil.IsKeyJustPressed(kb.key) {
			k.out(kb.b)
		}
	}
}
