package kernel

import (
	"context"
	"sync"
	"sync/atomic"

	"rpiterm/hal"
)

// System is the kernel timebase: a tick counter driven by the HAL tick stream
// and the deferred timer queue fired from it.
type System struct {
	ht  hal.Time
	log hal.Logger

	ticks   atomic.Uint64
	lastSeq uint64

	mu     sync.Mutex
	seq    uint64
	timers [MaxTimers]timer
}

// NewSystem creates a kernel instance. Ticks are counted once Run starts.
func NewSystem(ht hal.Time, log hal.Logger) *System {
	return &System{ht: ht, log: log}
}

// Run consumes the tick stream and fires due timers until ctx is done.
// Timer callbacks run on this goroutine, the interrupt context of the
// emulated core timer.
func (s *System) Run(ctx context.Context) error {
	ch := s.ht.Ticks()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case seq, ok := <-ch:
			if !ok {
				return nil
			}
			s.advance(seq)
			s.fireReady()
		}
	}
}

// advance accounts for ticks the HAL dropped while the consumer was busy.
func (s *System) advance(seq uint64) {
	if s.lastSeq != 0 && seq > s.lastSeq {
		s.ticks.Add(seq - s.lastSeq)
	} else {
		s.ticks.Add(1)
	}
	s.lastSeq = seq
}

// Ticks returns the number of ticks since Run started.
func (s *System) Ticks() uint64 {
	return s.ticks.Load()
}

func (s *System) TickHz() uint64 {
	return s.ht.TickHz()
}

// Seconds returns whole seconds since boot.
func (s *System) Seconds() uint64 {
	hz := s.ht.TickHz()
	if hz == 0 {
		return 0
	}
	return s.Ticks() / hz
}
