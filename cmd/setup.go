package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jobblixor/autoapply/internal/shared"
	"github.com/urfave/cli/v3"
)

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "create the config file, database schema, and storage directories",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: configPath,
				Usage: "path for the generated config file",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return r.Setup(ctx, cmd.String("config"))
		},
	}
}

// Setup initializes everything a fresh checkout needs to run: a config file
// from the embedded template, the SQLite schema, and the upload, screenshot,
// and cookie directories.
func (r *Runner) Setup(ctx context.Context, path string) error {
	if err := shared.CreateConfigFile(path); err != nil {
		r.logger.Debug("config file not created", "path", path, "error", err)
		r.writePlain("Config file already exists at %s, leaving it alone\n", path)
	} else {
		r.writePlain("Created %s\n", path)
	}

	db, opened, err := r.database()
	if err != nil {
		return err
	}
	if opened {
		defer db.Close()
	}

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.writePlain("Database ready at %s\n", r.config.Database.Path)

	for _, dir := range []string{
		r.config.Engine.UploadDir,
		r.config.Engine.ScreenshotDir,
		r.config.Engine.CookieDir,
	} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	r.writePlain("Storage directories ready\n")

	return nil
}
