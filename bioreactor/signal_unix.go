//go:build !windows

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/itohio/gobioreactor/pkg/control"
)

// toggleOnSignal requests a power toggle on every SIGUSR1 until ctx is done.
func toggleOnSignal(ctx context.Context, loop *control.Loop, log zerolog.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)

	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				log.Info().Msg("power toggle requested by signal")
				loop.RequestToggle()
			}
		}
	}()
}
