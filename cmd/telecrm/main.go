package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/crm"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"go.uber.org/zap"
)

func main() {
	err := config.Validate()
	if err != nil {
		logging.Logger.Fatal("invalid configuration", zap.String("error", err.Error()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := crm.NewApp(ctx)
	if err != nil {
		logging.Logger.Fatal("failed to create crm app", zap.String("error", err.Error()))
	}

	err = app.Run(ctx)
	if err != nil {
		logging.Logger.Error("crm app stopped with error", zap.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}
