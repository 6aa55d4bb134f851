package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/ghbridge/internal/cmd"
	"github.com/felixgeelhaar/ghbridge/internal/exitcode"
	"github.com/felixgeelhaar/ghbridge/internal/ux"
)

func main() {
	// Create a context that listens for interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.Run(ctx, os.Args[1:])
	if err == nil {
		return
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
		exitcode.Exit(exitcode.Interrupted)
	}
	if !cmd.IsReported(err) {
		ux.PrintError(os.Stderr, err, os.Getenv("NO_COLOR") != "")
	}
	exitcode.ExitWithError(err)
}
