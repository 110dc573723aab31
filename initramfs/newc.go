// Package initramfs reads cpio "newc" archives in place.
//
// Nothing is copied: entry data aliases the archive bytes, which are treated
// as read-only for the life of the kernel.
package initramfs

import (
	"errors"
	"fmt"
)

const (
	HeaderSize = 110
	Magic      = "070701"
	Trailer    = "TRAILER!!!"
)

var (
	ErrBadMagic  = errors.New("initramfs: bad magic")
	ErrBadHeader = errors.New("initramfs: malformed header")
	ErrTruncated = errors.New("initramfs: truncated archive")
)

// Header is a decoded newc header. All fields are 8 ASCII hex digits on disk.
type Header struct {
	Ino       uint32
	Mode      uint32
	UID       uint32
	GID       uint32
	Nlink     uint32
	Mtime     uint32
	FileSize  uint32
	DevMajor  uint32
	DevMinor  uint32
	RDevMajor uint32
	RDevMinor uint32
	NameSize  uint32 // includes the trailing NUL
	Check     uint32
}

// ParseHeader decodes the fixed part of a newc header from the start of b.
func ParseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, ErrTruncated
	}
	if string(b[:6]) != Magic {
		return h, ErrBadMagic
	}
	fields := [...]*uint32{
		&h.Ino, &h.Mode, &h.UID, &h.GID, &h.Nlink, &h.Mtime, &h.FileSize,
		&h.DevMajor, &h.DevMinor, &h.RDevMajor, &h.RDevMinor, &h.NameSize, &h.Check,
	}
	off := 6
	for i, f := range fields {
		v, ok := parseHex8(b[off : off+8])
		if !ok {
			return h, fmt.Errorf("field %d at offset %d: %w", i, off, ErrBadHeader)
		}
		*f = v
		off += 8
	}
	return h, nil
}

func parseHex8(b []byte) (uint32, bool) {
	var v uint32
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
			c -= '0'
		case c >= 'a' && c <= 'f':
			c -= 'a' - 10
		case c >= 'A' && c <= 'F':
			c -= 'A' - 10
		default:
			return 0, false
		}
		v = v<<4 | uint32(c)
	}
	return v, true
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// Entry is one archive member. Data aliases the archive.
type Entry struct {
	Path string
	Size uint32
	Data []byte
	// Next is the offset of the following header, or -1 for the trailer.
	Next int
}

func (e Entry) IsTrailer() bool { return e.Next < 0 }

// ParseEntry decodes the entry whose header starts at off.
func ParseEntry(archive []byte, off int) (Entry, error) {
	if off < 0 || off > len(archive) {
		return Entry{}, ErrTruncated
	}
	h, err := ParseHeader(archive[off:])
	if err != nil {
		return Entry{}, fmt.Errorf("header at %#x: %w", off, err)
	}
	if h.NameSize == 0 {
		return Entry{}, fmt.Errorf("header at %#x: empty name: %w", off, ErrBadHeader)
	}

	nameStart := off + HeaderSize
	nameEnd := nameStart + int(h.NameSize)
	if nameEnd > len(archive) {
		return Entry{}, fmt.Errorf("name at %#x: %w", nameStart, ErrTruncated)
	}
	name := archive[nameStart:nameEnd]
	if name[len(name)-1] == 0 {
		name = name[:len(name)-1]
	}

	dataStart := align4(nameEnd)
	dataEnd := dataStart + int(h.FileSize)
	if dataEnd > len(archive) || dataStart > len(archive) {
		return Entry{}, fmt.Errorf("data of %q at %#x: %w", name, dataStart, ErrTruncated)
	}

	e := Entry{
		Path: string(name),
		Size: h.FileSize,
		Data: archive[dataStart:dataEnd:dataEnd],
		Next: align4(dataEnd),
	}
	if e.Path == Trailer {
		e.Next = -1
	}
	return e, nil
}
