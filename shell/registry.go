package shell

import (
	"fmt"
	"io"
	"strings"
)

// Descriptor is one entry of the help listing.
type Descriptor struct {
	Name string
	Help string
}

// Descriptors is the help listing in display order. set2sAlert appears twice;
// only one route exists for it.
var Descriptors = []Descriptor{
	{Name: "cat", Help: "concatenate files and print on the standard output"},
	{Name: "dtb", Help: "show device tree"},
	{Name: "exec", Help: "execute a command, replacing current image with a new image"},
	{Name: "hello", Help: "print Hello World!"},
	{Name: "help", Help: "print all available commands"},
	{Name: "s_allocator", Help: "simple allocator in heap session"},
	{Name: "info", Help: "get device information via mailbox"},
	{Name: "ls", Help: "list directory contents"},
	{Name: "memory_tester", Help: "memory testcase generator, allocate and free"},
	{Name: "setTimeout", Help: "setTimeout [MESSAGE] [SECONDS]"},
	{Name: "set2sAlert", Help: "set core timer interrupt every 2 second"},
	{Name: "kmalloc", Help: "allocate memory using buddy system and dynamic allocator"},
	{Name: "kfree", Help: "free memory using buddy system and dynamic allocator"},
	{Name: "set2sAlert", Help: "set core timer interrupt every 2 second"},
	{Name: "reboot", Help: "reboot the device"},
}

// helpGutter is the number of spaces after the longest command name.
const helpGutter = 4

func writeHelp(w io.Writer, descs []Descriptor) {
	width := 0
	for _, d := range descs {
		if len(d.Name) > width {
			width = len(d.Name)
		}
	}
	_, _ = io.WriteString(w, "\r\nAvailable Commands:\r\n====================\r\n")
	for _, d := range descs {
		pad := strings.Repeat(" ", width-len(d.Name)+helpGutter)
		_, _ = fmt.Fprintf(w, "%s%s: %s\r\n", d.Name, pad, d.Help)
	}
}

type handler func(s *Shell, args []byte) error

type route struct {
	keyword string
	run     handler
}

// routes is matched top to bottom; the first equal keyword wins.
// page_addr and chunk_addr are debug dumps left out of the help listing.
var routes = []route{
	{"cat", cmdCat},
	{"dtb", cmdDTB},
	{"exec", cmdExec},
	{"hello", cmdHello},
	{"help", cmdHelp},
	{"info", cmdInfo},
	{"s_allocator", cmdSAllocator},
	{"ls", cmdLs},
	{"memory_tester", cmdMemoryTester},
	{"setTimeout", cmdSetTimeout},
	{"set2sAlert", cmdSet2sAlert},
	{"kmalloc", cmdKmalloc},
	{"kfree", cmdKfree},
	{"page_addr", cmdPageAddr},
	{"chunk_addr", cmdChunkAddr},
	{"reboot", cmdReboot},
}

func lookup(cmd []byte) (route, bool) {
	for _, r := range routes {
		if string(cmd) == r.keyword {
			return r, true
		}
	}
	return route{}, false
}
