package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/asset-store/pkg/assetstore/api"
	"github.com/tendant/asset-store/pkg/assetstore/config"
)

type Config struct {
	Port        string `env:"PORT" env-default:"8080"`
	DatabaseURL string `env:"DATABASE_URL" env-default:"memory"`

	S3 S3Config
}

type S3Config struct {
	Bucket      string `env:"AWS_S3_BUCKET" env-default:"content-bucket"`
	Prefix      string `env:"AWS_S3_PREFIX" env-default:""`
	AccessKeyID string `env:"AWS_ACCESS_KEY_ID" env-default:"minioadmin"`
	Secret      string `env:"AWS_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Endpoint    string `env:"AWS_S3_ENDPOINT" env-default:""`
	Region      string `env:"AWS_S3_REGION" env-default:"us-east-1"`
}

func main() {
	var envCfg Config
	if err := cleanenv.ReadEnv(&envCfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load(
		config.WithDatabaseURL(envCfg.DatabaseURL),
		config.WithAssetstore(config.AssetstoreConfig{
			Name:        "default",
			Bucket:      envCfg.S3.Bucket,
			Prefix:      envCfg.S3.Prefix,
			AccessKeyID: envCfg.S3.AccessKeyID,
			Secret:      envCfg.S3.Secret,
			Endpoint:    envCfg.S3.Endpoint,
			Region:      envCfg.S3.Region,
		}),
	)
	if err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}
	cfg.Port = envCfg.Port

	// Validates the assetstore, including the live write probe, before the
	// server starts accepting upload requests.
	service, err := cfg.BuildService(context.Background())
	if err != nil {
		slog.Error("Failed to build assetstore service", "err", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/api/v1", api.NewHandler(service).Routes())

	slog.Info("Starting assetstore server", "port", cfg.Port, "bucket", envCfg.S3.Bucket)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		slog.Error("Server stopped", "err", err)
		os.Exit(1)
	}
}
