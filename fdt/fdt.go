// Package fdt walks flattened device tree blobs (DTB v17).
package fdt

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const Magic = 0xd00dfeed

// Token is a structure-block token.
type Token uint32

const (
	BeginNode Token = 0x1
	EndNode   Token = 0x2
	Prop      Token = 0x3
	Nop       Token = 0x4
	End       Token = 0x9
)

func (t Token) String() string {
	switch t {
	case BeginNode:
		return "BEGIN_NODE"
	case EndNode:
		return "END_NODE"
	case Prop:
		return "PROP"
	case Nop:
		return "NOP"
	case End:
		return "END"
	default:
		return fmt.Sprintf("Token(%#x)", uint32(t))
	}
}

var (
	ErrBadMagic  = errors.New("fdt: bad magic")
	ErrTruncated = errors.New("fdt: truncated blob")
	ErrBadToken  = errors.New("fdt: bad token")
)

const headerSize = 40

// Header is the fixed blob header.
type Header struct {
	Magic           uint32
	TotalSize       uint32
	OffDtStruct     uint32
	OffDtStrings    uint32
	OffMemRsvmap    uint32
	Version         uint32
	LastCompVersion uint32
	BootCPUID       uint32
	SizeDtStrings   uint32
	SizeDtStruct    uint32
}

func ParseHeader(blob []byte) (Header, error) {
	var h Header
	if len(blob) < headerSize {
		return h, ErrTruncated
	}
	be := binary.BigEndian
	h.Magic = be.Uint32(blob[0:])
	if h.Magic != Magic {
		return h, ErrBadMagic
	}
	h.TotalSize = be.Uint32(blob[4:])
	h.OffDtStruct = be.Uint32(blob[8:])
	h.OffDtStrings = be.Uint32(blob[12:])
	h.OffMemRsvmap = be.Uint32(blob[16:])
	h.Version = be.Uint32(blob[20:])
	h.LastCompVersion = be.Uint32(blob[24:])
	h.BootCPUID = be.Uint32(blob[28:])
	h.SizeDtStrings = be.Uint32(blob[32:])
	h.SizeDtStruct = be.Uint32(blob[36:])
	if int(h.TotalSize) > len(blob) ||
		uint64(h.OffDtStruct)+uint64(h.SizeDtStruct) > uint64(h.TotalSize) ||
		uint64(h.OffDtStrings)+uint64(h.SizeDtStrings) > uint64(h.TotalSize) {
		return h, ErrTruncated
	}
	return h, nil
}

// Visitor is called for every BEGIN_NODE, END_NODE and PROP token. For nodes
// name is the unit name ("" for the root) and data is nil; for properties
// data aliases the blob. depth is the nesting level of the node the token
// belongs to, starting at 0 for the root.
type Visitor func(tok Token, name string, data []byte, depth int)

// Walk traverses the structure block in order.
func Walk(blob []byte, fn Visitor) error {
	h, err := ParseHeader(blob)
	if err != nil {
		return err
	}
	st := blob[h.OffDtStruct : h.OffDtStruct+h.SizeDtStruct]
	strs := blob[h.OffDtStrings : h.OffDtStrings+h.SizeDtStrings]
	be := binary.BigEndian

	depth := 0
	for off := 0; ; {
		if off+4 > len(st) {
			return ErrTruncated
		}
		tok := Token(be.Uint32(st[off:]))
		off += 4

		switch tok {
		case BeginNode:
			name, n, ok := cstring(st[off:])
			if !ok {
				return fmt.Errorf("node name at %#x: %w", off, ErrTruncated)
			}
			fn(tok, name, nil, depth)
			depth++
			off = align4(off + n + 1)
		case EndNode:
			if depth == 0 {
				return fmt.Errorf("unbalanced END_NODE at %#x: %w", off-4, ErrBadToken)
			}
			depth--
			fn(tok, "", nil, depth)
		case Prop:
			if depth == 0 {
				return fmt.Errorf("property outside any node at %#x: %w", off-4, ErrBadToken)
			}
			if off+8 > len(st) {
				return ErrTruncated
			}
			size := int(be.Uint32(st[off:]))
			nameOff := int(be.Uint32(st[off+4:]))
			off += 8
			if off+size > len(st) || nameOff >= len(strs) {
				return fmt.Errorf("property at %#x: %w", off-12, ErrTruncated)
			}
			name, _, ok := cstring(strs[nameOff:])
			if !ok {
				return fmt.Errorf("property name at %#x: %w", nameOff, ErrTruncated)
			}
			fn(tok, name, st[off:off+size:off+size], depth-1)
			off = align4(off + size)
		case Nop:
		case End:
			return nil
		default:
			return fmt.Errorf("%v at %#x: %w", tok, off-4, ErrBadToken)
		}
	}
}

func cstring(b []byte) (string, int, bool) {
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), i, true
		}
	}
	return "", 0, false
}

func align4(n int) int {
	return (n + 3) &^ 3
}
