// Package main implements the lex-deploy binary, which reconciles an
// Amazon Lex V2 bot against a declarative configuration and promotes a new
// version to production once its conversational tests pass.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "lex-deploy: %v\n", err)
		stop()
		os.Exit(1)
	}
}
