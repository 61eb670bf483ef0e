package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/carbon-ledger/token-sync/cmd"
)

func main() {
	// the run command handles a second signal itself to force the shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
