package mbox

// Framebuffer describes a buffer allocated by the firmware.
type Framebuffer struct {
	Width  uint32
	Height uint32
	Pitch  uint32
	// Addr is the ARM physical address of the first pixel.
	Addr uint32
	Size uint32
}

// AllocateFramebuffer asks the firmware for a 16bpp RGB framebuffer of the
// given size.
func AllocateFramebuffer(c Caller, width, height uint32) (Framebuffer, bool) {
	m := NewMessage()
	phys := m.AddTag(TagSetPhysicalSize, 2, width, height)
	m.AddTag(TagSetVirtualSize, 2, width, height)
	m.AddTag(TagSetVirtualOffset, 2, 0, 0)
	depth := m.AddTag(TagSetDepth, 1, 16)
	m.AddTag(TagSetPixelOrder, 1, 1)
	alloc := m.AddTag(TagAllocateBuffer, 2, 4096, 0)
	pitch := m.AddTag(TagGetPitch, 1)
	if pitch < 0 || !Call(c, &m) {
		return Framebuffer{}, false
	}
	if m.Word(depth) != 16 || m.Word(alloc) == 0 {
		return Framebuffer{}, false
	}
	return Framebuffer{
		Width:  m.Word(phys),
		Height: m.Word(phys + 1),
		Pitch:  m.Word(pitch),
		// Bus address -> ARM physical address.
		Addr: m.Word(alloc) & 0x3FFFFFFF,
		Size: m.Word(alloc + 1),
	}, true
}
