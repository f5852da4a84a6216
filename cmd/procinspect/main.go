package main

import (
	"context"
	"os"
	"os/signal"

	"procinspect/cmd/procinspect/cmds"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmds.New().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
