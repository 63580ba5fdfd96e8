package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rlabuda/cfgvault/cmd/cfgvault/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := commands.Execute(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
