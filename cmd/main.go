// package main is the entrypoint for the autoapply CLI
package main

import (
	"context"
	"os"

	"github.com/jobblixor/autoapply/internal/discovery"
	"github.com/jobblixor/autoapply/internal/shared"
	"github.com/urfave/cli/v3"
)

const (
	configPath = "config.toml"
	envPath    = "config.env"
)

func main() {
	logger := shared.NewLogger(nil)

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		config = shared.DefaultConfig()
	}
	if err := config.LoadEnvOverrides(envPath); err != nil {
		logger.Debug("no env overrides loaded", "path", envPath, "error", err)
	}

	searcher := discovery.NewClient(config.Credentials.SerpAPI.APIKey, discovery.ClientOpts{
		BaseURL: config.Credentials.SerpAPI.BaseURL,
		Logger:  logger,
	})

	runner := NewRunner(RunnerOpts{
		Config:   config,
		Logger:   logger,
		Searcher: searcher,
	})

	app := &cli.Command{
		Name:     "autoapply",
		Usage:    "apply to job postings automatically",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatal("command failed", "error", err)
	}
}
