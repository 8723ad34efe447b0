// Command ownctl runs the ownership walkthroughs, leak checks and stress
// tests.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
