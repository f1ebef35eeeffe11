package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/picvault/picvault-service/auth"
	"github.com/picvault/picvault-service/config"
	"github.com/picvault/picvault-service/engine"
	"github.com/picvault/picvault-service/http/controller"
	routes "github.com/picvault/picvault-service/http/route"
	infraPkg "github.com/picvault/picvault-service/infra"
	"github.com/picvault/picvault-service/repository"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)

	registry := prometheus.NewRegistry()
	metrics, err := engine.NewMetrics(registry)
	if err != nil {
		log.Fatalf("Failed to register engine metrics: %v", err)
	}

	opts := engine.OptionsFromConfig(cfg.EnvConfig)
	opts.Cleanup = infra.Produce.Cleanup
	opts.Logger = infra.Logger
	opts.Metrics = metrics

	eng := engine.New(repo.ImageRepo, infra.HotCache, infra.ColdStore, opts)
	authority := auth.NewAuthority(repo.AccessKeyRepo, infra.Logger, cfg.EnvConfig)

	ctrl := controller.NewController(cfg, infra, repo, eng, authority, registry)

	router := routes.SetupRouter(ctrl)

	port := cfg.EnvConfig.Server.Port
	if port == "" {
		port = "8080"
	}

	log.Println("HTTP Server started on :" + port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
