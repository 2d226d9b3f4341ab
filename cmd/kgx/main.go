// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/kgextract"
	"github.com/poiesic/kgextract/ai"
	"github.com/poiesic/kgextract/ai/openai"
	"github.com/poiesic/kgextract/config"
	"github.com/poiesic/kgextract/extraction"
	"github.com/urfave/cli/v2"
)

const (
	exitFailure   = 1
	exitCancelled = 130

	configKey = "config"
)

// newProvider builds the AI provider for commands that need one.
var newProvider = openai.NewProvider

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		stop()
		os.Exit(reportError(os.Stderr, err))
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "kgx",
		Usage: "Extract a knowledge graph from text documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default $HOME/.kgx/config.yaml, then ./kgx.yaml)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:    "storage",
				Aliases: []string{"s"},
				Usage:   "Path to graph database directory",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			extractCommand(),
			searchCommand(),
			neighborsCommand(),
			reembedCommand(),
			statsCommand(),
		},
	}
}

// setup loads the configuration and installs the default logger.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if storage := c.String("storage"); storage != "" {
		cfg.Storage.Path = storage
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[configKey] = cfg

	levelStr := cfg.LogLevel
	if c.IsSet("log-level") {
		levelStr = c.String("log-level")
	}
	level, err := parseLevel(levelStr)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	if cfg.File != "" {
		slog.Debug("loaded config", "file", cfg.File)
	}
	return nil
}

func parseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
}

func loadedConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	cfg, err := config.Load("")
	if err != nil {
		return &config.Config{}
	}
	return cfg
}

// openDatabase opens the configured graph with a live provider.
func openDatabase(c *cli.Context) (*kgextract.Database, *config.Config, error) {
	cfg := loadedConfig(c)
	if cfg.Storage.Path == "" {
		return nil, nil, errors.New("storage path is required")
	}

	provider, err := newProvider(cfg.ProviderConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create AI provider: %w", err)
	}

	if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
		provider.Close()
		return nil, nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	db, err := kgextract.NewDatabase(cfg.Storage.Path,
		kgextract.WithProvider(provider),
		kgextract.WithLogger(slog.Default()),
	)
	if err != nil {
		provider.Close()
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, cfg, nil
}

// reportError prints err for the user and returns the process exit code.
func reportError(w io.Writer, err error) int {
	if isCancellation(err) {
		fmt.Fprintln(w, "Cancelled.")
		return exitCancelled
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	if ai.IsAuthenticationError(err) {
		fmt.Fprintln(w, "The model server rejected the API key. Set ai.api_key in the config file or KGX_AI_API_KEY.")
	}
	return exitFailure
}

func isCancellation(err error) bool {
	return errors.Is(err, extraction.ErrPipelineCancelled) || errors.Is(err, context.Canceled)
}
