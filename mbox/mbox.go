// Package mbox builds VideoCore property-channel messages.
//
// Messages are values owned by the calling function; nothing here keeps a
// shared request buffer.
package mbox

// Caller submits a message on a mailbox channel and waits for the response.
// hal.Mailbox satisfies it.
type Caller interface {
	Call(channel uint8, msg []uint32) bool
}

// ChannelTags is the ARM -> VideoCore property channel.
const ChannelTags uint8 = 8

const (
	RequestCode    uint32 = 0x00000000
	ResponseOK     uint32 = 0x80000000
	TagRequestCode uint32 = 0x00000000
	TagEnd         uint32 = 0x00000000
)

// Property tags.
const (
	TagGetBoardModel    uint32 = 0x00010001
	TagGetBoardRevision uint32 = 0x00010002
	TagGetBoardSerial   uint32 = 0x00010004
	TagGetARMMemory     uint32 = 0x00010005

	TagAllocateBuffer   uint32 = 0x00040001
	TagGetPitch         uint32 = 0x00040008
	TagSetPhysicalSize  uint32 = 0x00048003
	TagSetVirtualSize   uint32 = 0x00048004
	TagSetDepth         uint32 = 0x00048005
	TagSetPixelOrder    uint32 = 0x00048006
	TagSetVirtualOffset uint32 = 0x00048009
)

const maxWords = 36

// Message is a property request: a size word, a request code, tags, and an
// end tag.
type Message struct {
	words [maxWords]uint32
	n     int
}

// NewMessage starts an empty request.
func NewMessage() Message {
	m := Message{n: 2}
	m.words[1] = RequestCode
	return m
}

// AddTag appends tag with a value buffer of bufWords words, pre-filled from
// vals. It returns the index of the first value word, or -1 if the message
// is full.
func (m *Message) AddTag(tag uint32, bufWords int, vals ...uint32) int {
	if bufWords < len(vals) {
		bufWords = len(vals)
	}
	// tag, size, code, values, plus room for the end tag.
	if m.n+3+bufWords+1 > maxWords {
		return -1
	}
	m.words[m.n] = tag
	m.words[m.n+1] = uint32(bufWords * 4)
	m.words[m.n+2] = TagRequestCode
	start := m.n + 3
	for i := 0; i < bufWords; i++ {
		m.words[start+i] = 0
	}
	copy(m.words[start:], vals)
	m.n = start + bufWords
	return start
}

// Words terminates the message and returns it as sent on the wire.
func (m *Message) Words() []uint32 {
	m.words[m.n] = TagEnd
	size := m.n + 1
	m.words[0] = uint32(size * 4)
	return m.words[:size]
}

// Word returns word i of the request/response.
func (m *Message) Word(i int) uint32 {
	if i < 0 || i >= maxWords {
		return 0
	}
	return m.words[i]
}

// Call sends m on the property channel. It reports whether the firmware
// answered with a success response.
func Call(c Caller, m *Message) bool {
	if c == nil {
		return false
	}
	if !c.Call(ChannelTags, m.Words()) {
		return false
	}
	return m.words[1] == ResponseOK
}

// query sends a single-tag request laid out in eight words: header, tag
// header, two value words, end tag. It returns both value words.
func query(c Caller, tag uint32, valueBytes uint32) (v [2]uint32, ok bool) {
	m := NewMessage()
	i := m.AddTag(tag, 2)
	m.words[i-2] = valueBytes
	if !Call(c, &m) {
		return v, false
	}
	return [2]uint32{m.words[i], m.words[i+1]}, true
}

// BoardRevision returns the two value words of the board revision tag. The
// revision itself is in the first word.
func BoardRevision(c Caller) ([2]uint32, bool) {
	return query(c, TagGetBoardRevision, 4)
}

// ARMMemory returns the base address and size of the ARM memory split.
func ARMMemory(c Caller) (base, size uint32, ok bool) {
	v, ok := query(c, TagGetARMMemory, 8)
	return v[0], v[1], ok
}

// BoardModel returns the firmware board model word.
func BoardModel(c Caller) (uint32, bool) {
	v, ok := query(c, TagGetBoardModel, 4)
	return v[0], ok
}

// BoardSerial returns the 64-bit board serial number.
func BoardSerial(c Caller) (uint64, bool) {
	v, ok := query(c, TagGetBoardSerial, 8)
	return uint64(v[1])<<32 | uint64(v[0]), ok
}
