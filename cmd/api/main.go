package main

import (
	"context"
	"os"

	"github.com/gofiber/fiber/v3"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/api"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/composer"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/config"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/database"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/k8s"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/ledger"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/logging"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/orchestrator"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/streamer"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/vault"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)

	if err != nil {
		logging.New(os.Stderr, logging.ParseLevel("info")).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	db, err := database.Connect(cfg.DBURL)

	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if cfg.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			log.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	// A bad encryption key is fatal here, not at first use.
	secretVault, err := vault.New(cfg.EncryptionKey)

	if err != nil {
		log.Error("failed to initialize secret vault", "error", err)
		os.Exit(1)
	}

	client, err := k8s.NewClientset(cfg.Kubeconfig)

	if err != nil {
		log.Error("failed to create kubernetes client", "error", err)
		os.Exit(1)
	}

	engine := orchestrator.New(
		ledger.NewDeploymentRepo(db),
		ledger.NewProjectRepo(db),
		ledger.NewSecretRepo(db),
		ledger.NewEventRepo(db),
		composer.New(client, log),
		secretVault,
		cfg.ClusterNamespace,
		cfg.BaseDomain,
		log,
	)

	stream := streamer.New(client, streamer.DefaultInterval, log)

	app := fiber.New(fiber.Config{
		AppName: "Compute API",
	})

	server := api.NewServer(engine, stream, cfg.JWTSecret, log)
	server.SetupRoutes(app)

	log.Info("starting api server", "port", cfg.ServerPort)

	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}
