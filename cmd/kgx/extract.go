package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/kgextract"
	"github.com/poiesic/kgextract/extraction"
	"github.com/poiesic/kgextract/report"
	"github.com/urfave/cli/v2"
)

var documentExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract entities and relationships from documents into the graph",
		ArgsUsage: "FILE|DIR|- ...",
		Action:    extractAction,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of chunks extracted at once (default from config)",
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Chunk size in words (default from config)",
			},
			&cli.IntFlag{
				Name:  "chunk-overlap",
				Usage: "Words shared by consecutive chunks (default from config)",
			},
			&cli.IntFlag{
				Name:  "report-interval",
				Usage: "Report progress every N chunks (0 disables)",
				Value: 10,
			},
		},
	}
}

func extractAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one document is required")
	}
	docs, err := readDocuments(c.Args().Slice(), c.App.Reader)
	if err != nil {
		return err
	}

	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	concurrency := cfg.Extraction.ConcurrencyLimit
	if c.IsSet("concurrency") {
		concurrency = c.Int("concurrency")
	}
	size, overlap := cfg.Extraction.ChunkSize, cfg.Extraction.ChunkOverlap
	if c.IsSet("chunk-size") {
		size = c.Int("chunk-size")
	}
	if c.IsSet("chunk-overlap") {
		overlap = c.Int("chunk-overlap")
	}

	status := extraction.NewStatus()
	executorOpts := []extraction.Option{
		extraction.WithConcurrency(concurrency),
		extraction.WithStatus(status),
	}
	if interval := c.Int("report-interval"); interval > 0 {
		executorOpts = append(executorOpts, extraction.WithProgress(c.App.ErrWriter, interval))
	}

	started := time.Now()
	result, err := db.Ingest(c.Context, docs,
		kgextract.WithChunking(size, overlap),
		kgextract.WithExecutorOptions(executorOpts...),
	)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	report.NewRenderer(c.App.Writer, c.Bool("no-color")).Summary(&report.Summary{
		Documents:            result.Documents,
		Chunks:               result.Chunks,
		Succeeded:            len(result.Results),
		EntitiesCreated:      result.Merge.EntitiesCreated,
		EntitiesUpdated:      result.Merge.EntitiesUpdated,
		RelationshipsCreated: result.Merge.RelationshipsCreated,
		RelationshipsUpdated: result.Merge.RelationshipsUpdated,
		Failures:             status.History(),
		Duration:             time.Since(started),
	})
	return nil
}

// readDocuments loads every path. Directories are walked for text and
// markdown files; "-" reads stdin.
func readDocuments(paths []string, stdin io.Reader) ([]kgextract.Document, error) {
	var docs []kgextract.Document
	for _, path := range paths {
		if path == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("failed to read stdin: %w", err)
			}
			docs = append(docs, kgextract.Document{ID: "stdin", Text: string(data)})
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			doc, err := readDocument(path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !documentExtensions[strings.ToLower(filepath.Ext(p))] {
				return nil
			}
			doc, err := readDocument(p)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func readDocument(path string) (kgextract.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return kgextract.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return kgextract.Document{ID: filepath.ToSlash(path), Text: string(data)}, nil
}
