package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storyloom/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := newCommandContext()
	runErr := newRootCommand(cli).ExecuteContext(ctx)
	// The store and metrics are closed even when the command failed.
	if err := errors.Join(runErr, cli.close(context.WithoutCancel(ctx))); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode separates usage mistakes (2) and interrupts (130) from other failures.
func exitCode(err error) int {
	switch services.Details(err).Kind {
	case "validation", "not_found":
		return 2
	case "interrupted":
		return 130
	}
	return 1
}
