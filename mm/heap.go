package mm

import (
	"fmt"
	"math/bits"
	"sort"
	"sync"
)

// ChunkSizes are the small-object size classes. Larger requests are served
// with whole pages.
var ChunkSizes = [...]int{16, 32, 64, 128, 256, 512, 1024, 2048}

const MaxChunk = 2048

type chunkPage struct {
	addr  uintptr
	class int
	slots int
	used  int
	bits  [PageSize / 16 / 64]uint64
}

func (p *chunkPage) take() int {
	for w := range p.bits {
		free := ^p.bits[w]
		if free == 0 {
			continue
		}
		slot := w*64 + bits.TrailingZeros64(free)
		if slot >= p.slots {
			return -1
		}
		p.bits[w] |= 1 << (slot % 64)
		p.used++
		return slot
	}
	return -1
}

// Heap is the kernel dynamic allocator (kmalloc/kfree) layered on a Buddy.
type Heap struct {
	mu      sync.Mutex
	pages   *Buddy
	classes [len(ChunkSizes)][]*chunkPage
	byPage  map[uintptr]*chunkPage
}

func NewHeap(pages *Buddy) *Heap {
	return &Heap{pages: pages, byPage: make(map[uintptr]*chunkPage)}
}

func (h *Heap) Pages() *Buddy { return h.pages }

func classFor(size int) int {
	for i, s := range ChunkSizes {
		if size <= s {
			return i
		}
	}
	return -1
}

// Kmalloc returns the address of at least size bytes. Requests up to
// MaxChunk come from a chunk class, larger ones from the page allocator.
func (h *Heap) Kmalloc(size int) (uintptr, error) {
	if size < 0 || size > PageSize<<MaxOrder {
		return 0, fmt.Errorf("kmalloc %d: %w", size, ErrOutOfMemory)
	}
	class := classFor(size)
	if class < 0 {
		return h.pages.Alloc(OrderFor(size))
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, p := range h.classes[class] {
		if p.used == p.slots {
			continue
		}
		if slot := p.take(); slot >= 0 {
			return p.addr + uintptr(slot*ChunkSizes[class]), nil
		}
	}

	addr, err := h.pages.Alloc(0)
	if err != nil {
		return 0, fmt.Errorf("kmalloc %d: %w", size, err)
	}
	h.pages.setChunk(addr, int8(class))
	p := &chunkPage{addr: addr, class: class, slots: PageSize / ChunkSizes[class]}
	h.classes[class] = append(h.classes[class], p)
	h.byPage[addr] = p
	slot := p.take()
	return p.addr + uintptr(slot*ChunkSizes[class]), nil
}

// Kfree releases an address returned by Kmalloc. A chunk page whose chunks
// are all free goes back to the page allocator.
func (h *Heap) Kfree(addr uintptr) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	page := addr &^ (PageSize - 1)
	p, ok := h.byPage[page]
	if !ok {
		return h.pages.Free(addr)
	}

	size := ChunkSizes[p.class]
	off := int(addr - page)
	if off%size != 0 {
		return fmt.Errorf("kfree %#x: %w", addr, ErrBadFree)
	}
	slot := off / size
	if p.bits[slot/64]&(1<<(slot%64)) == 0 {
		return fmt.Errorf("kfree %#x: %w", addr, ErrBadFree)
	}
	p.bits[slot/64] &^= 1 << (slot % 64)
	p.used--
	if p.used > 0 {
		return nil
	}

	delete(h.byPage, page)
	list := h.classes[p.class]
	for i, q := range list {
		if q == p {
			h.classes[p.class] = append(list[:i], list[i+1:]...)
			break
		}
	}
	h.pages.setChunk(page, -1)
	return h.pages.Free(page)
}

// Bytes returns the memory behind an allocated address, sized to its chunk
// class or page block.
func (h *Heap) Bytes(addr uintptr) []byte {
	h.mu.Lock()
	p, ok := h.byPage[addr&^(PageSize-1)]
	h.mu.Unlock()
	if !ok {
		return h.pages.Bytes(addr)
	}
	mem := h.pages.Bytes(p.addr)
	off := int(addr - p.addr)
	size := ChunkSizes[p.class]
	if mem == nil || off+size > len(mem) {
		return nil
	}
	return mem[off : off+size : off+size]
}

// WalkChunks calls fn for every allocated chunk in address order.
func (h *Heap) WalkChunks(fn func(addr uintptr, size int)) {
	type chunk struct {
		addr uintptr
		size int
	}
	h.mu.Lock()
	var out []chunk
	for _, p := range h.byPage {
		size := ChunkSizes[p.class]
		for slot := 0; slot < p.slots; slot++ {
			if p.bits[slot/64]&(1<<(slot%64)) != 0 {
				out = append(out, chunk{p.addr + uintptr(slot*size), size})
			}
		}
	}
	h.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].addr < out[j].addr })
	for _, c := range out {
		fn(c.addr, c.size)
	}
}
