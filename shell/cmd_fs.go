package shell

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"rpiterm/fdt"
)

func cmdCat(s *Shell, args []byte) error {
	path, _ := splitSpace(args)
	data, ok := s.resolve("cat", path)
	if !ok {
		return nil
	}
	_, _ = s.Out.Write(data)
	return nil
}

// cmdLs lists every archive member. The directory argument is accepted and
// ignored.
func cmdLs(s *Shell, _ []byte) error {
	it := s.Archive.Entries()
	for it.Next() {
		e := it.Entry()
		if e.IsTrailer() {
			break
		}
		s.print(e.Path)
		s.print("\n")
	}
	if err := it.Err(); err != nil {
		s.logf("shell: ls: %v", err)
		s.print("cpio parse error\n")
	}
	return nil
}

func cmdDTB(s *Shell, _ []byte) error {
	if len(s.DeviceTree) == 0 {
		return errors.New("no device tree")
	}
	return fdt.Walk(s.DeviceTree, showTree(s.Out))
}

// showTree prints nodes as an indented tree with a short preview of each
// property value.
func showTree(w io.Writer) fdt.Visitor {
	return func(tok fdt.Token, name string, data []byte, depth int) {
		indent := strings.Repeat("  ", depth)
		switch tok {
		case fdt.BeginNode:
			if name == "" {
				name = "/"
			}
			_, _ = fmt.Fprintf(w, "%s%s {\r\n", indent, name)
		case fdt.EndNode:
			_, _ = fmt.Fprintf(w, "%s}\r\n", indent)
		case fdt.Prop:
			_, _ = fmt.Fprintf(w, "%s  %s%s\r\n", indent, name, preview(data))
		}
	}
}

const previewCells = 4

func preview(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if strs, ok := stringList(data); ok {
		return ` = "` + strings.Join(strs, `", "`) + `"`
	}
	if len(data)%4 == 0 && len(data)/4 <= previewCells {
		var b strings.Builder
		b.WriteString(" = <")
		for i := 0; i < len(data); i += 4 {
			if i > 0 {
				b.WriteByte(' ')
			}
			v := uint32(data[i])<<24 | uint32(data[i+1])<<16 | uint32(data[i+2])<<8 | uint32(data[i+3])
			fmt.Fprintf(&b, "0x%08x", v)
		}
		b.WriteByte('>')
		return b.String()
	}
	return fmt.Sprintf(" = [%d bytes]", len(data))
}

// stringList decodes a NUL-separated list of printable strings.
func stringList(data []byte) ([]string, bool) {
	if data[len(data)-1] != 0 {
		return nil, false
	}
	var out []string
	start := 0
	for i, c := range data {
		switch {
		case c == 0:
			if i == start {
				return nil, false
			}
			out = append(out, string(data[start:i]))
			start = i + 1
		case c < 0x20 || c > 0x7e:
			return nil, false
		}
	}
	return out, true
}
