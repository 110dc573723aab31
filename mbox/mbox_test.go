package mbox

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// recorder captures requests and answers them through respond.
type recorder struct {
	sent    [][]uint32
	respond func(msg []uint32) bool
}

func (r *recorder) Call(channel uint8, msg []uint32) bool {
	if channel != ChannelTags {
		return false
	}
	r.sent = append(r.sent, append([]uint32(nil), msg...))
	if r.respond == nil {
		return false
	}
	return r.respond(msg)
}

func TestQueryLayout(t *testing.T) {
	r := &recorder{respond: func(msg []uint32) bool {
		msg[1] = ResponseOK
		msg[4] = 0x80000004
		msg[5] = 0x00a020d3
		return true
	}}
	rev, ok := BoardRevision(r)
	if !ok {
		t.Fatalf("BoardRevision failed")
	}
	if rev != [2]uint32{0x00a020d3, 0} {
		t.Fatalf("rev=%#x", rev)
	}

	want := []uint32{8 * 4, RequestCode, TagGetBoardRevision, 4, TagRequestCode, 0, 0, TagEnd}
	if diff := cmp.Diff(want, r.sent[0]); diff != "" {
		t.Fatalf("request layout (-want +got):\n%s", diff)
	}
}

func TestARMMemory(t *testing.T) {
	r := &recorder{respond: func(msg []uint32) bool {
		if msg[3] != 8 {
			return false
		}
		msg[1] = ResponseOK
		msg[5], msg[6] = 0, 0x3b400000
		return true
	}}
	base, size, ok := ARMMemory(r)
	if !ok || base != 0 || size != 0x3b400000 {
		t.Fatalf("ARMMemory=%#x %#x %v", base, size, ok)
	}
}

func TestFailedCalls(t *testing.T) {
	tests := []struct {
		name    string
		respond func([]uint32) bool
	}{
		{name: "transport", respond: nil},
		{name: "error response", respond: func(msg []uint32) bool {
			msg[1] = 0x80000001
			return true
		}},
		{name: "untouched", respond: func([]uint32) bool { return true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{respond: tt.respond}
			if _, ok := BoardRevision(r); ok {
				t.Fatalf("BoardRevision succeeded")
			}
			if _, _, ok := ARMMemory(r); ok {
				t.Fatalf("ARMMemory succeeded")
			}
		})
	}
	if _, ok := BoardSerial(nil); ok {
		t.Fatalf("nil caller succeeded")
	}
}

func TestAddTagOverflow(t *testing.T) {
	m := NewMessage()
	if i := m.AddTag(TagGetPitch, maxWords); i != -1 {
		t.Fatalf("AddTag = %d, want -1", i)
	}
	if i := m.AddTag(TagGetPitch, 1); i != 5 {
		t.Fatalf("AddTag = %d, want 5", i)
	}
	words := m.Words()
	if len(words) != 7 || words[0] != 28 || words[6] != TagEnd {
		t.Fatalf("words=%#x", words)
	}
}

func TestAllocateFramebuffer(t *testing.T) {
	r := &recorder{respond: func(msg []uint32) bool {
		msg[1] = ResponseOK
		for i := 2; i < len(msg) && msg[i] != TagEnd; {
			size := int(msg[i+1] / 4)
			v := msg[i+3 : i+3+size]
			switch msg[i] {
			case TagAllocateBuffer:
				v[0], v[1] = 0xC7A00000, 640*480*2
			case TagGetPitch:
				v[0] = 640 * 2
			}
			i += 3 + size
		}
		return true
	}}
	fb, ok := AllocateFramebuffer(r, 640, 480)
	if !ok {
		t.Fatalf("AllocateFramebuffer failed")
	}
	want := Framebuffer{Width: 640, Height: 480, Pitch: 1280, Addr: 0x07A00000, Size: 640 * 480 * 2}
	if fb != want {
		t.Fatalf("fb=%+v want %+v", fb, want)
	}
}

func TestAllocateFramebufferRejectsDepth(t *testing.T) {
	r := &recorder{respond: func(msg []uint32) bool {
		msg[1] = ResponseOK
		for i := 2; i < len(msg) && msg[i] != TagEnd; {
			size := int(msg[i+1] / 4)
			if msg[i] == TagSetDepth {
				msg[i+3] = 32
			}
			i += 3 + size
		}
		return true
	}}
	if _, ok := AllocateFramebuffer(r, 640, 480); ok {
		t.Fatalf("accepted a 32bpp buffer")
	}
}
