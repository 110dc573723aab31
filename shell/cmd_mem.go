package shell

import (
	"errors"
)

var errNoAllocator = errors.New("allocator not available")

func cmdSAllocator(s *Shell, _ []byte) error {
	if s.Session == nil {
		return errNoAllocator
	}
	for _, tc := range []struct {
		size int
		text string
	}{
		{0x18, "test malloc1"},
		{0x20, "test malloc2"},
		{0x28, "test malloc3"},
	} {
		mem, _, err := s.Session.Alloc(tc.size)
		if err != nil {
			return err
		}
		n := copy(mem, tc.text)
		_, _ = s.Out.Write(mem[:n])
		s.print("\n")
	}
	return nil
}

// cmdMemoryTester runs a fixed allocation pattern across chunk classes and
// multi-page blocks, printing every step. Each block is filled with a byte
// derived from its address and checked again before it is freed, so blocks
// handed out twice show up as overwritten.
func cmdMemoryTester(s *Shell, _ []byte) error {
	if s.Heap == nil {
		return errNoAllocator
	}
	a := s.kmalloc(0x10)
	b := s.kmalloc(0x100)
	c := s.kmalloc(0x1000)

	s.kfree(a)
	s.kfree(b)
	s.kfree(c)

	a = s.kmalloc(32)
	aa := s.kmalloc(50)
	b = s.kmalloc(64)
	bb := s.kmalloc(64)
	c = s.kmalloc(128)
	cc := s.kmalloc(129)
	d := s.kmalloc(256)
	dd := s.kmalloc(256)
	e := s.kmalloc(512)
	ee := s.kmalloc(999)

	f := s.kmalloc(0x2000)
	ff := s.kmalloc(0x2000)
	g := s.kmalloc(0x2000)
	gg := s.kmalloc(0x2000)
	h := s.kmalloc(0x2000)
	hh := s.kmalloc(0x2000)

	for _, p := range []uintptr{a, aa, b, bb, c, cc, dd, d, e, ee, f, ff, g, gg, h, hh} {
		s.kfree(p)
	}
	return nil
}

func (s *Shell) kmalloc(size int) uintptr {
	addr, err := s.Heap.Kmalloc(size)
	if err != nil {
		s.printf("kmalloc(%d): %v\r\n", size, err)
		return 0
	}
	s.printf("kmalloc(%d) = 0x%08x\r\n", size, addr)
	mem := s.Heap.Bytes(addr)
	for i := range mem {
		mem[i] = stamp(addr)
	}
	return addr
}

func (s *Shell) kfree(addr uintptr) {
	if addr == 0 {
		return
	}
	for _, v := range s.Heap.Bytes(addr) {
		if v != stamp(addr) {
			s.printf("kfree(0x%08x): contents overwritten\r\n", addr)
			break
		}
	}
	if err := s.Heap.Kfree(addr); err != nil {
		s.printf("kfree(0x%08x): %v\r\n", addr, err)
		return
	}
	s.printf("kfree(0x%08x)\r\n", addr)
}

func stamp(addr uintptr) byte {
	return byte(addr>>4) ^ byte(addr>>12) ^ 0xa5
}

func cmdKmalloc(s *Shell, _ []byte) error {
	if s.Heap == nil {
		return errNoAllocator
	}
	arg, ok := s.readArg("size (Bytes): ")
	if !ok {
		return nil
	}
	addr, err := s.Heap.Kmalloc(atoi(arg))
	if err != nil {
		return err
	}
	s.printf("address: 0x%08x\n", addr)
	return nil
}

func cmdKfree(s *Shell, _ []byte) error {
	if s.Heap == nil {
		return errNoAllocator
	}
	arg, ok := s.readArg("address: ")
	if !ok {
		return nil
	}
	if err := s.Heap.Kfree(uintptr(parseHex(arg))); err != nil {
		return err
	}
	s.print("\n")
	return nil
}

func cmdPageAddr(s *Shell, _ []byte) error {
	if s.Heap == nil {
		return errNoAllocator
	}
	n := 0
	s.Heap.Pages().WalkAllocated(func(addr uintptr, order int) {
		s.printf("page 0x%08x order %d (%d pages)\r\n", addr, order, 1<<order)
		n++
	})
	if n == 0 {
		s.print("no allocated pages\r\n")
	}
	return nil
}

func cmdChunkAddr(s *Shell, _ []byte) error {
	if s.Heap == nil {
		return errNoAllocator
	}
	n := 0
	s.Heap.WalkChunks(func(addr uintptr, size int) {
		s.printf("chunk 0x%08x size %d\r\n", addr, size)
		n++
	})
	if n == 0 {
		s.print("no allocated chunks\r\n")
	}
	return nil
}
