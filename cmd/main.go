package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/convx/internal/services"
	"github.com/desertthunder/convx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	converterService := services.NewConverterService(config.API.BaseURL, nil)
	apiService := services.NewAPIService(config.API.BaseURL, nil)

	runner := NewRunner(RunnerOpts{
		Config:    config,
		Converter: converterService,
		API:       apiService,
		Logger:    logger,
	})

	app := &cli.Command{
		Name:     "convx",
		Usage:    "Convert legacy VB6 projects to modern .NET Worker Services",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
