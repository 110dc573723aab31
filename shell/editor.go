package shell

import "io"

// CmdMaxLen is the capacity of the command line buffer.
const CmdMaxLen = 32

const (
	keyDelete   = 0x7f
	keyLineFeed = '\n'
)

// Line is the fixed command line buffer reused by every loop iteration.
type Line struct {
	buf [CmdMaxLen]byte
	n   int
}

// Clear zeroes the buffer.
func (l *Line) Clear() {
	l.buf = [CmdMaxLen]byte{}
	l.n = 0
}

func (l *Line) Bytes() []byte { return l.buf[:l.n] }

func (l *Line) Len() int { return l.n }

func (l *Line) Full() bool { return l.n == CmdMaxLen }

// ReadLine reads one line from r into l, echoing to w.
//
// The line feed ends the line and is not stored. Delete removes the last byte
// and erases it on screen; on an empty line it does nothing. Once the buffer
// is full every byte up to the line feed is dropped without echo.
func ReadLine(r io.ByteReader, w io.Writer, l *Line) error {
	for {
		c, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case c == keyLineFeed:
			_, _ = io.WriteString(w, "\r\n")
			return nil
		case c == keyDelete:
			if l.n == 0 {
				continue
			}
			l.n--
			l.buf[l.n] = 0
			_, _ = io.WriteString(w, "\b \b")
		case l.Full():
		default:
			l.buf[l.n] = c
			l.n++
			_, _ = w.Write(l.buf[l.n-1 : l.n])
		}
	}
}

// splitSpace splits b at its first space. Both halves alias b; without a
// space rest is empty.
func splitSpace(b []byte) (head, rest []byte) {
	for i, c := range b {
		if c == ' ' {
			return b[:i], b[i+1:]
		}
	}
	return b, b[len(b):]
}
