// Package mm implements the kernel allocators: a session bump allocator, a
// buddy page allocator and a chunk allocator for small objects.
//
// All allocators manage a caller-provided byte region together with the
// address the CPU sees for its first byte, and hand out addresses in that
// space.
package mm

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrOutOfMemory = errors.New("mm: out of memory")
	ErrBadFree     = errors.New("mm: free of unallocated address")
)

const SessionAlign = 16

// Session is a bump allocator. Memory is only reclaimed when the most recent
// allocation is freed; any other Free is ignored.
type Session struct {
	mu   sync.Mutex
	base uintptr
	mem  []byte
	off  int
	last int // start of the most recent allocation, -1 if none
}

func NewSession(base uintptr, mem []byte) *Session {
	// Align the first allocation to SessionAlign in address space.
	skip := int(alignUp(base, SessionAlign) - base)
	if skip > len(mem) {
		skip = len(mem)
	}
	return &Session{base: base, mem: mem, off: skip, last: -1}
}

// Alloc returns size bytes aligned to SessionAlign and their address.
func (s *Session) Alloc(size int) ([]byte, uintptr, error) {
	if size < 0 {
		return nil, 0, fmt.Errorf("session alloc %d: %w", size, ErrOutOfMemory)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int(alignUp(uintptr(size), SessionAlign))
	if n > len(s.mem)-s.off {
		return nil, 0, fmt.Errorf("session alloc %d: %w", size, ErrOutOfMemory)
	}
	start := s.off
	s.off += n
	s.last = start
	return s.mem[start : start+size : start+n], s.base + uintptr(start), nil
}

// Free releases addr if it is the most recent allocation.
func (s *Session) Free(addr uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last >= 0 && addr == s.base+uintptr(s.last) {
		s.off = s.last
		s.last = -1
	}
}

// Used reports the number of bytes consumed, including alignment padding.
func (s *Session) Used() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.off
}

func alignUp(v, a uintptr) uintptr {
	return (v + a - 1) &^ (a - 1)
}
