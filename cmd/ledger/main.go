// Command ledger records project goals and decisions in a local event-sourced store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/c0deZ3R0/go-ledger-kit/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
