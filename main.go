package main

import (
	"context"
	"log/slog"
	"os"

	"Gin_postgres_redis_lendshare/app"
	"Gin_postgres_redis_lendshare/config"
	"Gin_postgres_redis_lendshare/obs"
	"Gin_postgres_redis_lendshare/routes"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	config.SetupLogger(cfg.LogFormat)

	shutdown, err := obs.InitTracer(context.Background(), "lendshare-api", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("init tracer", "err", err)
		os.Exit(1)
	}
	defer func() { _ = shutdown(context.Background()) }()

	application := app.MustNew(cfg)
	defer application.Close()

	app.BootstrapAdmins(context.Background(), cfg, application.Repo)

	r := application.Router
	routes.RegisterRoutes(r, application)

	slog.Info("listening", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		slog.Error("server stopped", "err", err)
	}
}
