package main

import (
	"fmt"

	"github.com/poiesic/kgextract/reembed"
	"github.com/urfave/cli/v2"
)

func reembedCommand() *cli.Command {
	defaults := reembed.DefaultConfig()
	return &cli.Command{
		Name:   "reembed",
		Usage:  "Recompute the embedding of every entity",
		Action: reembedAction,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of entities to process in each batch",
				Value: defaults.BatchSize,
			},
			&cli.IntFlag{
				Name:  "report-interval",
				Usage: "Report progress every N entities",
				Value: defaults.ReportInterval,
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum retry attempts for failed operations",
				Value: defaults.MaxRetries,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff",
				Value: defaults.RetryDelay,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of batches embedded at once",
				Value: defaults.Concurrency,
			},
		},
	}
}

func reembedAction(c *cli.Context) error {
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Concurrency:    c.Int("concurrency"),
	}

	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	reembedder, err := db.NewReembedder(reembedConfig, c.App.ErrWriter)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.Storage.Path)
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	if err := reembedder.Run(c.Context); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}
