package fdt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
)

// blobBuilder assembles a minimal DTB for tests.
type blobBuilder struct {
	st   []byte
	strs []byte
	offs map[string]uint32
}

func newBlobBuilder() *blobBuilder {
	return &blobBuilder{offs: make(map[string]uint32)}
}

func (b *blobBuilder) u32(v uint32) {
	b.st = binary.BigEndian.AppendUint32(b.st, v)
}

func (b *blobBuilder) pad() {
	for len(b.st)%4 != 0 {
		b.st = append(b.st, 0)
	}
}

func (b *blobBuilder) begin(name string) *blobBuilder {
	b.u32(uint32(BeginNode))
	b.st = append(b.st, name...)
	b.st = append(b.st, 0)
	b.pad()
	return b
}

func (b *blobBuilder) end() *blobBuilder {
	b.u32(uint32(EndNode))
	return b
}

func (b *blobBuilder) nop() *blobBuilder {
	b.u32(uint32(Nop))
	return b
}

func (b *blobBuilder) prop(name string, data []byte) *blobBuilder {
	off, ok := b.offs[name]
	if !ok {
		off = uint32(len(b.strs))
		b.offs[name] = off
		b.strs = append(b.strs, name...)
		b.strs = append(b.strs, 0)
	}
	b.u32(uint32(Prop))
	b.u32(uint32(len(data)))
	b.u32(off)
	b.st = append(b.st, data...)
	b.pad()
	return b
}

func (b *blobBuilder) bytes() []byte {
	b.u32(uint32(End))
	rsv := make([]byte, 16)
	offRsv := uint32(headerSize)
	offStruct := offRsv + uint32(len(rsv))
	offStrings := offStruct + uint32(len(b.st))
	total := offStrings + uint32(len(b.strs))

	be := binary.BigEndian
	out := make([]byte, headerSize, total)
	be.PutUint32(out[0:], Magic)
	be.PutUint32(out[4:], total)
	be.PutUint32(out[8:], offStruct)
	be.PutUint32(out[12:], offStrings)
	be.PutUint32(out[16:], offRsv)
	be.PutUint32(out[20:], 17)
	be.PutUint32(out[24:], 16)
	be.PutUint32(out[32:], uint32(len(b.strs)))
	be.PutUint32(out[36:], uint32(len(b.st)))
	out = append(out, rsv...)
	out = append(out, b.st...)
	out = append(out, b.strs...)
	return out
}

func cells(v ...uint32) []byte {
	var out []byte
	for _, c := range v {
		out = binary.BigEndian.AppendUint32(out, c)
	}
	return out
}

func sampleBlob() []byte {
	return newBlobBuilder().
		begin("").
		prop("model", []byte("Raspberry Pi 3 Model B\x00")).
		prop("#address-cells", cells(1)).
		begin("chosen").
		prop("linux,initrd-start", cells(0x08000000)).
		prop("linux,initrd-end", cells(0x08010000)).
		end().
		nop().
		begin("memory@0").
		prop("reg", cells(0, 0x3b400000)).
		end().
		end().
		bytes()
}

func TestWalkOrderAndDepth(t *testing.T) {
	var got []string
	err := Walk(sampleBlob(), func(tok Token, name string, data []byte, depth int) {
		got = append(got, fmt.Sprintf("%d %v %s %d", depth, tok, name, len(data)))
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []string{
		"0 BEGIN_NODE  0",
		"0 PROP model 23",
		"0 PROP #address-cells 4",
		"1 BEGIN_NODE chosen 0",
		"1 PROP linux,initrd-start 4",
		"1 PROP linux,initrd-end 4",
		"1 END_NODE  0",
		"1 BEGIN_NODE memory@0 0",
		"1 PROP reg 8",
		"1 END_NODE  0",
		"0 END_NODE  0",
	}
	if len(got) != len(want) {
		t.Fatalf("visits:\n%q\nwant:\n%q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("visit %d=%q want %q", i, got[i], want[i])
		}
	}
}

func TestWalkErrors(t *testing.T) {
	good := sampleBlob()

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 0

	badSize := append([]byte(nil), good...)
	binary.BigEndian.PutUint32(badSize[4:], uint32(len(good)+4))

	badTok := newBlobBuilder().begin("").bytes()
	binary.BigEndian.PutUint32(badTok[headerSize+16+8:], 0x7)

	unbalanced := newBlobBuilder().end().bytes()
	orphanProp := newBlobBuilder().prop("model", []byte("x\x00")).bytes()

	tests := []struct {
		name string
		blob []byte
		want error
	}{
		{name: "nil", blob: nil, want: ErrTruncated},
		{name: "magic", blob: badMagic, want: ErrBadMagic},
		{name: "totalsize", blob: badSize, want: ErrTruncated},
		{name: "token", blob: badTok, want: ErrBadToken},
		{name: "unbalanced", blob: unbalanced, want: ErrBadToken},
		{name: "orphan property", blob: orphanProp, want: ErrBadToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Walk(tt.blob, func(Token, string, []byte, int) {})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err=%v want %v", err, tt.want)
			}
		})
	}
}

func TestInitrdRange(t *testing.T) {
	start, end, ok := InitrdRange(sampleBlob())
	if !ok || start != 0x08000000 || end != 0x08010000 {
		t.Fatalf("InitrdRange=%#x,%#x,%v", start, end, ok)
	}

	noChosen := newBlobBuilder().begin("").prop("linux,initrd-start", cells(1)).end().bytes()
	if _, _, ok := InitrdRange(noChosen); ok {
		t.Fatalf("InitrdRange found range outside /chosen")
	}
}
