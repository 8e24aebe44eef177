package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/AntonVanke/xuexinwang/internal/app/repositories"
	"github.com/AntonVanke/xuexinwang/internal/app/services"
	"github.com/AntonVanke/xuexinwang/internal/bootstrap"
	"github.com/AntonVanke/xuexinwang/internal/config"
	"github.com/AntonVanke/xuexinwang/internal/db"
	"github.com/AntonVanke/xuexinwang/internal/pkg/filestorage"
	"github.com/AntonVanke/xuexinwang/internal/pkg/logger"
	"github.com/AntonVanke/xuexinwang/internal/server"
)

// @title Xuexin Student Archive API
// @version 1.0
// @description Student enrollment record archive with collection-code credentials

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Admin session token

func main() {
	app := &cli.App{
		Name:  "xuexinwang",
		Usage: "student enrollment record archive",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML or JSON config file",
				Value:   "configs/config.yaml",
				EnvVars: []string{"CONFIG_PATH"},
			},
			&cli.StringFlag{Name: "host", Usage: "listen host"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "listen port"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug mode"},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: migrate,
			},
			{
				Name:   "repair-uploads",
				Usage:  "give stored photos without an image extension the one detected from their content",
				Action: repairUploads,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command line overrides
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	var o config.Overrides
	if c.IsSet("host") {
		host := c.String("host")
		o.Host = &host
	}
	if c.IsSet("port") {
		port := c.Int("port")
		o.Port = &port
	}
	if c.IsSet("debug") {
		debug := c.Bool("debug")
		o.Debug = &debug
	}

	if err := cfg.Apply(o); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	// Run blocks until shutdown signal
	if err := srv.Run(); err != nil {
		return err
	}

	logger.Info().Msg("Application finished gracefully.")
	return nil
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	lgr := bootstrap.SetupLogger(cfg)

	database, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return err
	}
	database.Close()
	return nil
}

func repairUploads(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	lgr := bootstrap.SetupLogger(cfg)

	database, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return err
	}
	defer database.Close()

	storage, err := filestorage.NewLocalStorage(cfg.Upload.Dir, cfg.Upload.PublicPrefix)
	if err != nil {
		return err
	}
	uploads := services.NewUploadService(storage, cfg.Upload.MaxSize, logger.Component("repair"))
	students := repositories.NewStudentRepository(database.DB, db.StatementBuilder(database.Driver))

	ctx, cancel := context.WithTimeout(c.Context, 10*time.Minute)
	defer cancel()

	report, err := uploads.RepairExtensions(ctx, students)
	if err != nil {
		return fmt.Errorf("repair stopped: %w", err)
	}
	lgr.Info().
		Int("fixed", report.Fixed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("Upload repair finished")
	return nil
}
