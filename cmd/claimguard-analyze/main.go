// Command claimguard-analyze scores one claims file and writes the fraud reports next to it
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"claimguard/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		logger.Get().Error().Err(err).Msg("claimguard-analyze failed")
		stop()
		os.Exit(1)
	}
}
