//go:build !tinygo

package hal

import (
	"fmt"
	"sync"
	"time"
)

// hostRegisters is a sparse register file. Writes to the PM watchdog are
// interpreted: a full-reset configuration plus a countdown schedules a reset.
type hostRegisters struct {
	mu    sync.Mutex
	regs  map[uintptr]uint32
	log   Logger
	reset func()
	timer *time.Timer
}

func newHostRegisters(log Logger, reset func()) *hostRegisters {
	return &hostRegisters{regs: make(map[uintptr]uint32), log: log, reset: reset}
}

func (r *hostRegisters) Read32(addr uintptr) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.regs[addr]
}

func (r *hostRegisters) Write32(addr uintptr, v uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch addr {
	case PMRSTC, PMWDOG:
		if v&0xFF000000 != PMPassword {
			r.log.WriteLineString(fmt.Sprintf("pm: write %#08x to %#x without password ignored", v, addr))
			return
		}
	}
	r.regs[addr] = v

	if addr != PMWDOG {
		return
	}
	if r.regs[PMRSTC]&pmRSTCWRCFGMask != PMRSTCFullReset {
		return
	}
	countdown := v & 0x000FFFFF
	d := time.Duration(countdown) * time.Second / WatchdogTickHz
	r.log.WriteLineString(fmt.Sprintf("pm: watchdog armed, full reset in %d ticks (%s)", countdown, d))
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(d, func() {
		r.log.WriteLineString("pm: watchdog expired, resetting")
		if r.reset != nil {
			r.reset()
		}
	})
}
