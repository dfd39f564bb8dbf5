package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/passring/passring/internal/adapter"
	"github.com/passring/passring/internal/config"
	"github.com/passring/passring/internal/crypto"
	"github.com/passring/passring/internal/logger"
	"github.com/passring/passring/internal/service"
	"github.com/passring/passring/internal/store"
	"github.com/passring/passring/internal/utils"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewFileLogger("passring")
	cfg, err := config.GetEngineConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	utils.InitHasherPool(cfg.App.HashKey)

	keychain, err := crypto.NewKeyChainService()
	if err != nil {
		log.Fatal().Err(err).Msg("platform CSPRNG unavailable")
	}

	serverAdapter := adapter.NewHTTPServerAdapter(adapter.HTTPClientConfig{
		BaseURL: cfg.Adapter.HTTPAddress,
		HashKey: cfg.App.HashKey,
		Timeout: cfg.Adapter.RequestTimeout,
	})

	storages, err := store.NewStorages(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}

	services := service.NewServices(keychain, storages, serverAdapter, cfg.Workers.PruneAge, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services.Job.Start(ctx, cfg.Workers.SyncInterval)
	log.Info().
		Str("version", cfg.App.Version).
		Dur("sync_interval", cfg.Workers.SyncInterval).
		Msg("passring engine started")

	<-ctx.Done()

	services.Job.Stop()
	services.Codec.ClearKeySet()
	log.Info().Msg("passring engine stopped")
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
