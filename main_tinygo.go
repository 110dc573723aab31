//go:build tinygo && rpi3

package main

import (
	"context"

	"rpiterm/app"
	"rpiterm/hal"
)

func main() {
	h := hal.New()
	if err := app.Run(context.Background(), h); err != nil {
		h.Logger().WriteLineString("kernel: shell stopped: " + err.Error())
	}
	select {}
}
