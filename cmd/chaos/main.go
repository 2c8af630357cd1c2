// cmd/chaos/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventrental/internal/app"
	"eventrental/internal/chaos"
	"eventrental/internal/config"
	"eventrental/internal/logging"

	"go.uber.org/zap"
)

func main() {
	duration := flag.Duration("duration", 5*time.Second, "observation window per experiment")
	pause := flag.Duration("pause", 2*time.Second, "pause between experiments")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel, config.ServiceName+"-chaos")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the relay stays off: experiments only touch stock
	cfg.KafkaBroker = ""
	container, err := app.NewContainer(ctx, cfg, logger, nil, app.Options{})
	if err != nil {
		logger.Fatal("Failed to build services", zap.Error(err))
	}
	defer container.Close()

	engine := chaos.NewEngine(logger)
	engine.Standard(container.ChaosTarget(logger.Named("experiments")), *duration)

	held, err := engine.ExecuteGameDay(ctx, chaos.GameDay{
		Name:      "Inventory ledger game day",
		Date:      time.Now(),
		Scenarios: engine.Experiments(),
		Pause:     *pause,
	})
	if err != nil {
		logger.Fatal("Game day interrupted", zap.Error(err))
	}
	if !held {
		logger.Error("At least one hypothesis was violated")
		os.Exit(1)
	}
	logger.Info("All hypotheses held")
}
