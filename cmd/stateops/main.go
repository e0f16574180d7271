package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/catherinevee/stateops/cmd/stateops/commands"
)

const exitInterrupted = 130

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := commands.Execute(ctx)

	if ctx.Err() != nil {
		// Completed phases keep their artifacts as-is; the in-flight phase
		// may need a re-run.
		fmt.Fprintln(os.Stderr, "stateops: interrupted, results above reflect completed phases only")
		os.Exit(exitInterrupted)
	}

	os.Exit(code)
}
