//go:build !tinygo

package hal

import (
	"errors"
	"fmt"
	"os"
)

// hostMemory stands in for the regions the firmware and boot loader set up:
// the ramdisk and device tree loaded next to the kernel, and the heap.
type hostMemory struct {
	initramfs []byte
	dtb       []byte
	heap      []byte
	heapBase  uintptr
}

func newHostMemory(cfg BoardConfig, log Logger) (*hostMemory, error) {
	m := &hostMemory{heap: make([]byte, cfg.HeapBytes), heapBase: uintptr(cfg.HeapBase)}

	var err error
	if m.initramfs, err = loadRegion("initramfs", cfg.Initramfs, log); err != nil {
		return nil, err
	}
	if m.dtb, err = loadRegion("dtb", cfg.DeviceTree, log); err != nil {
		return nil, err
	}
	return m, nil
}

// loadRegion reads a boot file. A missing file leaves the region empty, like
// a boot partition without it.
func loadRegion(name, path string, log Logger) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.WriteLineString(fmt.Sprintf("boot: %s %q not found, region left empty", name, path))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %q: %w", name, path, err)
	}
	log.WriteLineString(fmt.Sprintf("boot: %s %q loaded, %d bytes", name, path, len(b)))
	return b, nil
}

func (m *hostMemory) Initramfs() []byte  { return m.initramfs }
func (m *hostMemory) DeviceTree() []byte { return m.dtb }
func (m *hostMemory) Heap() []byte       { return m.heap }
func (m *hostMemory) HeapBase() uintptr  { return m.heapBase }
