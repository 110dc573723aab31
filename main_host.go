//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"rpiterm/app"
	"rpiterm/hal"
	"rpiterm/internal/buildinfo"
)

func main() {
	var (
		boardPath string
		initramfs string
		dtb       string
		window    bool
		hz        int
		logLevel  string
		noReboot  bool
	)
	flag.StringVar(&boardPath, "board", os.Getenv("RPITERM_BOARD"), "YAML board description (env RPITERM_BOARD).")
	flag.StringVar(&initramfs, "initramfs", "", "cpio newc archive (overrides the board file).")
	flag.StringVar(&dtb, "dtb", "", "Flattened device tree blob (overrides the board file).")
	flag.BoolVar(&window, "window", false, "Show the framebuffer console in a window.")
	flag.IntVar(&hz, "hz", 1000, "Tick rate of the emulated system timer.")
	flag.StringVar(&logLevel, "log-level", "info", "Diagnostic log level (debug, info, warn, error).")
	flag.BoolVar(&noReboot, "no-reboot", false, "Exit instead of restarting after a watchdog reset.")
	flag.Parse()

	if err := run(boardPath, initramfs, dtb, window, hz, logLevel, noReboot); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(boardPath, initramfs, dtb string, window bool, hz int, logLevel string, noReboot bool) error {
	z, err := hal.NewZapLogger(logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = z.Sync() }()

	cfg, err := hal.LoadBoardConfig(boardPath)
	if err != nil {
		return err
	}
	if initramfs != "" {
		cfg.Initramfs = initramfs
	}
	if dtb != "" {
		cfg.DeviceTree = dtb
	}

	h, err := hal.New(cfg, z)
	if err != nil {
		return err
	}
	if c, ok := h.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}
	z.Info("power on",
		zap.String("build", buildinfo.Short()),
		zap.String("board", boardPath),
		zap.Uint32("revision", cfg.Revision))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The serial line and the emulated RAM survive a reset; the kernel is
	// rebuilt from scratch on every boot.
	boot := func(ctx context.Context) error {
		for {
			err := app.Run(ctx, h)
			if !errors.Is(err, hal.ErrReset) || noReboot {
				return err
			}
			z.Info("watchdog reset, rebooting")
		}
	}

	if window {
		err = hal.RunWindow(ctx, h, boot)
	} else {
		err = hal.RunHeadless(ctx, h, boot, hal.HeadlessConfig{Hz: hz})
	}
	switch {
	case err == nil,
		errors.Is(err, io.EOF),
		errors.Is(err, context.Canceled),
		errors.Is(err, hal.ErrReset):
		return nil
	}
	return err
}
