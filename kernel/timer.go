package kernel

import (
	"errors"
	"fmt"
	"sort"
)

const MaxTimers = 32

var ErrTimerQueueFull = errors.New("kernel: timer queue full")

// TimerFunc is a one-shot timer callback. arg is the value given to AddTimer.
type TimerFunc func(arg string)

type timer struct {
	inUse bool
	due   uint64
	seq   uint64
	fn    TimerFunc
	arg   string
}

// AddTimer arms a one-shot timer firing fn(arg) after the given number of
// seconds. Negative durations fire on the next tick.
func (s *System) AddTimer(fn TimerFunc, arg string, seconds int) error {
	if seconds < 0 {
		seconds = 0
	}
	return s.AddTimerTicks(fn, arg, uint64(seconds)*s.TickHz())
}

// AddTimerTicks arms a one-shot timer firing after dt ticks.
func (s *System) AddTimerTicks(fn TimerFunc, arg string, dt uint64) error {
	if fn == nil {
		return errors.New("kernel: nil timer callback")
	}
	due := s.Ticks() + dt

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.timers {
		if s.timers[i].inUse {
			continue
		}
		s.seq++
		s.timers[i] = timer{inUse: true, due: due, seq: s.seq, fn: fn, arg: arg}
		if s.log != nil {
			s.log.WriteLineString(fmt.Sprintf("timer: armed %q due at tick %d", arg, due))
		}
		return nil
	}
	return fmt.Errorf("add timer %q: %w", arg, ErrTimerQueueFull)
}

// Pending returns the number of armed timers.
func (s *System) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.timers {
		if s.timers[i].inUse {
			n++
		}
	}
	return n
}

// fireReady runs every due timer in deadline order. Slots are released
// before the callbacks run so a callback may re-arm itself.
func (s *System) fireReady() {
	now := s.Ticks()

	var ready [MaxTimers]timer
	n := 0
	s.mu.Lock()
	for i := range s.timers {
		t := &s.timers[i]
		if !t.inUse || t.due > now {
			continue
		}
		ready[n] = *t
		n++
		*t = timer{}
	}
	s.mu.Unlock()
	if n == 0 {
		return
	}

	due := ready[:n]
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		if s.log != nil {
			s.log.WriteLineString(fmt.Sprintf("timer: fired %q at tick %d", t.arg, now))
		}
		t.fn(t.arg)
	}
}
