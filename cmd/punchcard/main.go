// Package main starts the punchcard shift tracking service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/punchcard-hq/punchcard/internal/platform/config"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/app"
)

func main() {
	env, err := app.LoadEnv()
	if err != nil {
		config.Exitf("load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, env); err != nil {
		config.Exitf("run: %v", err)
	}
}
