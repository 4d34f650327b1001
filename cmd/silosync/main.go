// Command silosync synchronizes paths, metadata and reports with a hosted
// media library.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fruitsalade/silosync/internal/cli"
	"github.com/fruitsalade/silosync/internal/faults"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		stop()
		os.Exit(exitCode(err))
	}
}

// describe prefixes err with its kind and names the remote method that
// failed, if any.
func describe(err error) string {
	e, ok := faults.AsError(err)
	if !ok {
		return "Error: " + err.Error()
	}
	msg := fmt.Sprintf("%s: %v", e.Kind, err)
	if m := faults.MethodOf(err); m != "" {
		msg += " (method " + m + ")"
	}
	return msg
}

func exitCode(err error) int {
	switch faults.KindOf(err) {
	case faults.Validation:
		return 2
	case faults.NotFound:
		return 3
	case faults.RemoteCall, faults.Transport:
		return 4
	default:
		return 1
	}
}
