// Package main is the entry point for the clientes terminal client
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cliente_backend/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		if !cli.AlreadyReported(err) {
			os.Stderr.WriteString("Error: " + err.Error() + "\n")
		}
		stop()
		os.Exit(1)
	}
}
