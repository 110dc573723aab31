//go:build !tinygo

package hal

import "sync"

// Property protocol words understood by the emulated firmware.
const (
	propRequest      uint32 = 0x00000000
	propResponseOK   uint32 = 0x80000000
	propResponseFail uint32 = 0x80000001
	propTagResponse  uint32 = 0x80000000

	tagBoardModel    uint32 = 0x00010001
	tagBoardRevision uint32 = 0x00010002
	tagBoardSerial   uint32 = 0x00010004
	tagARMMemory     uint32 = 0x00010005
	tagEnd           uint32 = 0x00000000
)

// hostMailbox answers property-channel requests from BoardConfig, the way the
// VideoCore firmware answers them from OTP and config.txt.
type hostMailbox struct {
	mu  sync.Mutex
	cfg BoardConfig
}

func newHostMailbox(cfg BoardConfig) *hostMailbox {
	return &hostMailbox{cfg: cfg}
}

func (m *hostMailbox) Call(channel uint8, msg []uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if channel != MailboxChannelTags || len(msg) < 3 {
		return false
	}
	if msg[0]%4 != 0 || msg[0] < 12 || int(msg[0]/4) > len(msg) {
		return false
	}
	if msg[1] != propRequest {
		return false
	}

	words := msg[:msg[0]/4]
	i := 2
	for i < len(words) {
		tag := words[i]
		if tag == tagEnd {
			words[1] = propResponseOK
			return true
		}
		if i+3 > len(words) {
			break
		}
		bufBytes := words[i+1]
		valStart := i + 3
		valEnd := valStart + int((bufBytes+3)/4)
		if valEnd > len(words) {
			break
		}
		n, ok := m.answer(tag, words[valStart:valEnd])
		if !ok {
			break
		}
		words[i+2] = propTagResponse | n
		i = valEnd
	}
	words[1] = propResponseFail
	return false
}

// answer fills val for tag and returns the response length in bytes.
func (m *hostMailbox) answer(tag uint32, val []uint32) (uint32, bool) {
	switch tag {
	case tagBoardModel:
		if len(val) < 1 {
			return 0, false
		}
		val[0] = 0
		return 4, true
	case tagBoardRevision:
		if len(val) < 1 {
			return 0, false
		}
		val[0] = m.cfg.Revision
		return 4, true
	case tagBoardSerial:
		if len(val) < 2 {
			return 0, false
		}
		val[0] = uint32(m.cfg.Serial)
		val[1] = uint32(m.cfg.Serial >> 32)
		return 8, true
	case tagARMMemory:
		if len(val) < 2 {
			return 0, false
		}
		val[0] = m.cfg.MemoryBase
		val[1] = m.cfg.MemorySize
		return 8, true
	default:
		return 0, false
	}
}
