package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/utafrali/ecommerce-discovery/internal/app"
	"github.com/utafrali/ecommerce-discovery/internal/config"
	"github.com/utafrali/ecommerce-discovery/internal/seed"
	"github.com/utafrali/ecommerce-discovery/pkg/logger"
)

func main() {
	cmd := &cli.Command{
		Name:  "discovery",
		Usage: "product search, filtering and ranking service",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "dotenv file to load before reading the environment (repeatable)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the cache invalidation consumer",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply the embedded catalog schema",
				Action: migrate,
			},
			{
				Name:  "seed",
				Usage: "Generate a demo catalog into a JSON file or the catalog database",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Usage: "write a memory catalog seed file instead of loading postgres"},
					&cli.IntFlag{Name: "stores", Value: seed.DefaultOptions().Stores},
					&cli.IntFlag{Name: "products", Value: seed.DefaultOptions().ProductsPerStore, Usage: "products per store"},
					&cli.IntFlag{Name: "event-days", Value: seed.DefaultOptions().EventDays},
					&cli.Int64Flag{Name: "rand-seed", Value: seed.DefaultOptions().RandSeed},
				},
				Action: generate,
			},
		},
	}

	// Cancelled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("discovery failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func setup(c *cli.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.StringSlice("env-file")...)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(app.ServiceName, cfg.LogLevel), nil
}

func serve(ctx context.Context, c *cli.Command) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	log.Info("starting discovery service",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("catalog", cfg.CatalogBackend),
	)

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}

	// Blocks until shutdown.
	if err := application.Run(ctx); err != nil {
		return err
	}

	log.Info("discovery service stopped")
	return nil
}

func migrate(ctx context.Context, c *cli.Command) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	return app.Migrate(ctx, cfg, log)
}

func generate(ctx context.Context, c *cli.Command) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}

	catalog := seed.Generate(seed.Options{
		Stores:           int(c.Int("stores")),
		ProductsPerStore: int(c.Int("products")),
		EventDays:        int(c.Int("event-days")),
		RandSeed:         c.Int64("rand-seed"),
	}, time.Now().UTC())

	if out := c.String("out"); out != "" {
		if err := seed.WriteFile(out, catalog); err != nil {
			return err
		}
		log.Info("seed file written",
			slog.String("path", out),
			slog.Int("products", len(catalog.Products)),
			slog.Int("events", len(catalog.Events)),
		)
		return nil
	}

	return app.Seed(ctx, cfg, catalog, log)
}
