// Command lcaprommis builds openLCA processes from process model flow tables
// and evaluates process models against LCA results.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rshade/lcaprommis/internal/cli"
	"github.com/rshade/lcaprommis/internal/config"
	"github.com/rshade/lcaprommis/pkg/version"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cli.NewRootCmd(version.GetVersion()).ExecuteContext(ctx)
}

// exitCode maps an error returned by the command tree to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, cli.ErrMissingFlag), errors.Is(err, config.ErrInvalidConfig):
		return exitUsage
	default:
		return exitFailure
	}
}
