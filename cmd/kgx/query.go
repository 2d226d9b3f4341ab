package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/report"
	"github.com/poiesic/kgextract/search"
	"github.com/poiesic/kgextract/storage"
	"github.com/urfave/cli/v2"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find entities matching a query",
		ArgsUsage: "QUERY",
		Action:    searchAction,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of results",
				Value:   10,
			},
			&cli.Float64Flag{
				Name:  "min-similarity",
				Usage: "Cosine similarity below which semantic matches are ignored",
				Value: float64(search.DefaultMinSimilarity),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log each stage of the search at debug level",
			},
		},
	}
}

func searchAction(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("a search query is required")
	}

	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher(search.WithMinSimilarity(float32(c.Float64("min-similarity"))))
	if err != nil {
		return err
	}

	var monitor search.SearchMonitor
	if c.Bool("verbose") {
		monitor = &logMonitor{logger: slog.Default().With("component", "search")}
	}
	matches, err := searcher.FindEntitiesWithMonitor(c.Context, query, c.Int("limit"), monitor)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	report.NewRenderer(c.App.Writer, c.Bool("no-color")).Matches(matches)
	return nil
}

func neighborsCommand() *cli.Command {
	return &cli.Command{
		Name:      "neighbors",
		Usage:     "List the entities related to an entity",
		ArgsUsage: "NAME",
		Action:    neighborsAction,
	}
}

func neighborsAction(c *cli.Context) error {
	name := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if name == "" {
		return errors.New("an entity name is required")
	}

	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}
	neighbors, err := searcher.Neighbors(c.Context, name)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no entity named %q", name)
	}
	if err != nil {
		return err
	}

	report.NewRenderer(c.App.Writer, c.Bool("no-color")).Neighbors(core.NormalizeName(name), neighbors)
	return nil
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show the size of the graph",
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	entities, err := db.EntityRepository().CountEntities(c.Context)
	if err != nil {
		return err
	}
	relationships, err := db.RelationshipRepository().CountRelationships(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Database: %s\nEntities: %d\nRelationships: %d\n", cfg.Storage.Path, entities, relationships)
	return nil
}

// logMonitor logs search stages at debug level.
type logMonitor struct {
	logger *slog.Logger
}

func (m *logMonitor) Start(query string) {
	m.logger.Debug("search started", "query", query)
}

func (m *logMonitor) AfterSemanticSearch(ids []core.ID) {
	m.logger.Debug("semantic search done", "matches", len(ids))
}

func (m *logMonitor) AfterNameLookup(entity *core.Entity) {
	if entity == nil {
		m.logger.Debug("no entity with the query as its name")
		return
	}
	m.logger.Debug("name lookup hit", "entity", entity.Name)
}

func (m *logMonitor) SemanticAndNameHit(entity *core.Entity) {
	m.logger.Debug("hybrid hit", "entity", entity.Name)
}

func (m *logMonitor) SemanticHit(entity *core.Entity) {
	m.logger.Debug("semantic hit", "entity", entity.Name)
}

func (m *logMonitor) NameHit(entity *core.Entity) {
	m.logger.Debug("name hit", "entity", entity.Name)
}

func (m *logMonitor) Finish(results []*core.EntityMatch) {
	m.logger.Debug("search finished", "results", len(results))
}
