//go:build windows

package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/itohio/gobioreactor/pkg/control"
)

// toggleOnSignal is a no-op: there is no SIGUSR1 on Windows.
func toggleOnSignal(ctx context.Context, loop *control.Loop, log zerolog.Logger) {}
