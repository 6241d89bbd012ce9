// Package graceful ties a context to the process termination signals.
package graceful

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// Context returns a context that is canceled on SIGINT or SIGTERM. The returned cancel
// func also stops signal delivery.
func Context(ctx context.Context, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("Received termination signal, starting graceful shutdown")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
