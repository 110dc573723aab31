package mm

import (
	"fmt"
	"sync"
)

const (
	PageShift = 12
	PageSize  = 1 << PageShift
	// MaxOrder is the largest block order: 2^MaxOrder pages.
	MaxOrder = 10
)

type frameState uint8

const (
	frameTail frameState = iota // inside a block, not its first page
	frameFree                   // first page of a free block
	frameAllocated              // first page of an allocated block
)

// frame is the per-page metadata. Free blocks are linked through their first
// frame.
type frame struct {
	state frameState
	order int8
	chunk int8 // size class index when the page backs chunks, -1 otherwise
	next  int32
	prev  int32
}

// Buddy is a binary buddy page allocator.
type Buddy struct {
	mu     sync.Mutex
	base   uintptr
	mem    []byte
	frames []frame
	free   [MaxOrder + 1]int32
	nfree  [MaxOrder + 1]int
}

// NewBuddy manages the whole pages of mem. base is the address of mem[0].
func NewBuddy(base uintptr, mem []byte) *Buddy {
	start := alignUp(base, PageSize)
	skip := int(start - base)
	if skip > len(mem) {
		skip = len(mem)
	}
	mem = mem[skip:]
	n := len(mem) / PageSize

	b := &Buddy{base: start, mem: mem[:n*PageSize], frames: make([]frame, n)}
	for o := range b.free {
		b.free[o] = -1
	}
	for i := range b.frames {
		b.frames[i] = frame{state: frameTail, chunk: -1, next: -1, prev: -1}
	}
	for i := 0; i < n; {
		o := MaxOrder
		for o > 0 && (i&(1<<o-1) != 0 || i+1<<o > n) {
			o--
		}
		b.push(i, o)
		i += 1 << o
	}
	return b
}

func (b *Buddy) push(i, order int) {
	f := &b.frames[i]
	f.state = frameFree
	f.order = int8(order)
	f.prev = -1
	f.next = b.free[order]
	if f.next >= 0 {
		b.frames[f.next].prev = int32(i)
	}
	b.free[order] = int32(i)
	b.nfree[order]++
}

func (b *Buddy) unlink(i int) {
	f := &b.frames[i]
	order := f.order
	if f.prev >= 0 {
		b.frames[f.prev].next = f.next
	} else {
		b.free[order] = f.next
	}
	if f.next >= 0 {
		b.frames[f.next].prev = f.prev
	}
	f.next, f.prev = -1, -1
	f.state = frameTail
	b.nfree[order]--
}

// OrderFor returns the smallest order whose block holds size bytes.
func OrderFor(size int) int {
	pages := (size + PageSize - 1) / PageSize
	o := 0
	for 1<<o < pages {
		o++
	}
	return o
}

// Alloc returns the address of a free block of 2^order pages.
func (b *Buddy) Alloc(order int) (uintptr, error) {
	if order < 0 || order > MaxOrder {
		return 0, fmt.Errorf("alloc order %d: %w", order, ErrOutOfMemory)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	o := order
	for o <= MaxOrder && b.free[o] < 0 {
		o++
	}
	if o > MaxOrder {
		return 0, fmt.Errorf("alloc order %d: %w", order, ErrOutOfMemory)
	}
	i := int(b.free[o])
	b.unlink(i)
	for o > order {
		o--
		b.push(i+1<<o, o)
	}
	b.frames[i].state = frameAllocated
	b.frames[i].order = int8(order)
	return b.addr(i), nil
}

// Free releases a block returned by Alloc and merges it with free buddies.
func (b *Buddy) Free(addr uintptr) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i, ok := b.index(addr)
	if !ok || b.frames[i].state != frameAllocated || b.frames[i].chunk >= 0 {
		return fmt.Errorf("free page %#x: %w", addr, ErrBadFree)
	}
	b.release(i)
	return nil
}

func (b *Buddy) release(i int) {
	o := int(b.frames[i].order)
	b.frames[i].state = frameTail
	for o < MaxOrder {
		j := i ^ (1 << o)
		if j+1<<o > len(b.frames) {
			break
		}
		buddy := &b.frames[j]
		if buddy.state != frameFree || int(buddy.order) != o {
			break
		}
		b.unlink(j)
		if j < i {
			i = j
		}
		o++
	}
	b.push(i, o)
}

func (b *Buddy) addr(i int) uintptr {
	return b.base + uintptr(i)<<PageShift
}

func (b *Buddy) index(addr uintptr) (int, bool) {
	if addr < b.base || addr&(PageSize-1) != 0 {
		return 0, false
	}
	i := int((addr - b.base) >> PageShift)
	return i, i < len(b.frames)
}

// Bytes returns the memory of the allocated block at addr.
func (b *Buddy) Bytes(addr uintptr) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.index(addr)
	if !ok || b.frames[i].state != frameAllocated {
		return nil
	}
	off := i * PageSize
	end := off + PageSize<<b.frames[i].order
	return b.mem[off:end:end]
}

// Pages reports the number of managed pages.
func (b *Buddy) Pages() int { return len(b.frames) }

// FreeBlocks returns the number of free blocks per order.
func (b *Buddy) FreeBlocks() [MaxOrder + 1]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nfree
}

// WalkAllocated calls fn for every allocated block in address order,
// including pages backing chunks.
func (b *Buddy) WalkAllocated(fn func(addr uintptr, order int)) {
	b.mu.Lock()
	type block struct {
		addr  uintptr
		order int
	}
	var out []block
	for i := range b.frames {
		if b.frames[i].state == frameAllocated {
			out = append(out, block{b.addr(i), int(b.frames[i].order)})
		}
	}
	b.mu.Unlock()
	for _, blk := range out {
		fn(blk.addr, blk.order)
	}
}

func (b *Buddy) setChunk(addr uintptr, class int8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.index(addr); ok {
		b.frames[i].chunk = class
	}
}
