package fdt

import "encoding/binary"

// InitrdRange reports the ramdisk location the boot loader stored in
// /chosen (linux,initrd-start and linux,initrd-end).
func InitrdRange(blob []byte) (start, end uint64, ok bool) {
	var path []string
	var haveStart, haveEnd bool
	err := Walk(blob, func(tok Token, name string, data []byte, depth int) {
		switch tok {
		case BeginNode:
			path = append(path[:depth], name)
		case Prop:
			if depth != 1 || path[1] != "chosen" {
				return
			}
			v, good := cell(data)
			if !good {
				return
			}
			switch name {
			case "linux,initrd-start":
				start, haveStart = v, true
			case "linux,initrd-end":
				end, haveEnd = v, true
			}
		}
	})
	if err != nil || !haveStart || !haveEnd || end < start {
		return 0, 0, false
	}
	return start, end, true
}

// cell decodes a 1- or 2-cell big-endian integer property.
func cell(data []byte) (uint64, bool) {
	switch len(data) {
	case 4:
		return uint64(binary.BigEndian.Uint32(data)), true
	case 8:
		return binary.BigEndian.Uint64(data), true
	}
	return 0, false
}
