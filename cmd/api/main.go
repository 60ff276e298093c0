package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"causalboot/adapters/glm"
	"causalboot/adapters/postgres"
	"causalboot/adapters/resample"
	"causalboot/internal/analysis"
	"causalboot/internal/bootstrap"
	"causalboot/internal/config"
	"causalboot/ui"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	appCfg := ui.Config{Port: cfg.Server.Port}

	// Persistence is optional: without DATABASE_URL the API still serves
	// inline-table estimation requests.
	if cfg.Database.URL != "" {
		db, err := postgres.Connect(cfg.Database.URL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		if err := postgres.Migrate(context.Background(), db); err != nil {
			log.Fatalf("database: %v", err)
		}
		appCfg.Datasets = postgres.NewDatasetRepository(db)
		appCfg.Runs = postgres.NewRunRepository(db)
	}

	driver := bootstrap.NewDriver(
		resample.NewResampler(),
		resample.NewStreamFactory(cfg.Bootstrap.Seed),
	)
	service := analysis.NewService(glm.NewFitter(), driver)

	defaults := bootstrap.DefaultOptions()
	defaults.Replicates = cfg.Bootstrap.Replicates
	defaults.Workers = cfg.Bootstrap.Workers
	defaults.Alpha = cfg.Bootstrap.Alpha
	defaults.FailureThreshold = cfg.Bootstrap.FailureThreshold
	appCfg.Defaults = defaults

	app := ui.NewApp(service, appCfg)
	if err := app.Start(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
