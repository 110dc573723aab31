//go:build !tinygo

package hal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BoardConfig describes the emulated board for the host build.
type BoardConfig struct {
	// Revision is returned for the board revision property tag.
	Revision uint32 `yaml:"revision"`
	// MemoryBase and MemorySize are returned for the ARM memory property tag.
	MemoryBase uint32 `yaml:"memory_base"`
	MemorySize uint32 `yaml:"memory_size"`

	// Serial is returned for the board serial property tag.
	Serial uint64 `yaml:"serial"`

	// HeapBase is the physical address reported for the first heap byte.
	// HeapBytes sizes the region handed to the kernel allocators.
	HeapBase  uint32 `yaml:"heap_base"`
	HeapBytes int    `yaml:"heap_bytes"`

	Initramfs  string `yaml:"initramfs"`
	DeviceTree string `yaml:"dtb"`

	FramebufferWidth  int `yaml:"fb_width"`
	FramebufferHeight int `yaml:"fb_height"`
}

// DefaultBoardConfig matches a Raspberry Pi 3 Model B+ with the default
// GPU memory split.
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		Revision:          0x00a020d3,
		MemoryBase:        0x00000000,
		MemorySize:        0x3b400000,
		Serial:            0x00000000deadbeef,
		HeapBase:          0x10000000,
		HeapBytes:         8 * 1024 * 1024,
		Initramfs:         "initramfs.cpio",
		FramebufferWidth:  640,
		FramebufferHeight: 480,
	}
}

// LoadBoardConfig reads a YAML board file on top of DefaultBoardConfig.
// An empty path returns the defaults.
func LoadBoardConfig(path string) (BoardConfig, error) {
	cfg := DefaultBoardConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read board config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse board config %q: %w", path, err)
	}
	if cfg.HeapBytes <= 0 {
		return cfg, fmt.Errorf("board config %q: heap_bytes must be positive", path)
	}
	if cfg.HeapBase%4096 != 0 {
		return cfg, fmt.Errorf("board config %q: heap_base %#x is not page aligned", path, cfg.HeapBase)
	}
	if cfg.FramebufferWidth <= 0 || cfg.FramebufferHeight <= 0 {
		return cfg, fmt.Errorf("board config %q: invalid framebuffer size %dx%d",
			path, cfg.FramebufferWidth, cfg.FramebufferHeight)
	}
	return cfg, nil
}
