//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	// Hz is how often the emulated system timer is advanced.
	Hz int
}

// RunHeadless drives the emulated timer while run executes on its own
// goroutine. It returns run's error, or ctx.Err() once ctx is done.
func RunHeadless(ctx context.Context, h HAL, run func(context.Context) error, cfg HeadlessConfig) error {
	hh, ok := h.(*hostHAL)
	if !ok {
		return fmt.Errorf("headless runner needs the host HAL, got %T", h)
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 1000
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// run may be parked in a blocking serial read that ignores ctx, so it is
	// not part of the group: on cancellation the runner returns without it.
	done := make(chan error, 1)
	go func() { done <- run(runCtx) }()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				hh.t.step()
			}
		}
	})

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	cancel()
	_ = g.Wait()
	return err
}
