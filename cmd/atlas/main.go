// Command atlas is a terminal client for the atlas country API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"atlas/internal/platform/config"
)

func main() {
	config.LoadDotEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.DashboardFromEnv()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
