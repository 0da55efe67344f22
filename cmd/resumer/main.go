// Command resumer restarts pollers for persisted pending transactions and
// runs them to completion without serving HTTP. Useful after an API outage
// when the main process cannot be restarted immediately.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rampcore/internal/bootstrap"
	"rampcore/internal/infrastructure/logx"
)

func init() { _ = godotenv.Load() }

func main() {
	log := logx.L()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, cleanup, err := bootstrap.InitApp(ctx)
	if err != nil {
		log.Fatal("bootstrap", zap.Error(err))
	}
	defer cleanup()

	if err := app.Orch.Resume(ctx); err != nil {
		log.Fatal("resume pending transactions", zap.Error(err))
	}
	log.Info("resumer running; polling until terminated")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("resumer stopped")
}
