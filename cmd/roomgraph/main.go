// Package main provides the room graph command line tool: it builds a graph
// from a layout file, a stored graph, or a Lua script, validates it, and
// writes it back to storage or a YAML layout file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomgraph/internal/config"
	"github.com/cory-johannsen/roomgraph/internal/dungeon/editor"
	"github.com/cory-johannsen/roomgraph/internal/dungeon/graph"
	"github.com/cory-johannsen/roomgraph/internal/dungeon/layout"
	"github.com/cory-johannsen/roomgraph/internal/dungeon/roomtype"
	"github.com/cory-johannsen/roomgraph/internal/observability"
	"github.com/cory-johannsen/roomgraph/internal/scripting"
	"github.com/cory-johannsen/roomgraph/internal/storage"
	"github.com/cory-johannsen/roomgraph/internal/storage/postgres"
	"github.com/cory-johannsen/roomgraph/internal/storage/sqlite"
)

type options struct {
	typesPath string
	script    string
	layoutIn  string
	loadID    string
	out       string
	graphID   string
	name      string
	list      bool
}

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute runs the tool and returns the process exit code. Deferred cleanup,
// including the logger flush, completes before it returns.
func execute(args []string) int {
	start := time.Now()

	fs := flag.NewFlagSet("roomgraph", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file (defaults and ROOMGRAPH_* env when empty)")
	var opts options
	fs.StringVar(&opts.typesPath, "types", "", "room type catalog YAML (overrides room_types.path)")
	fs.StringVar(&opts.script, "script", "", "Lua layout script file or directory to run")
	fs.StringVar(&opts.layoutIn, "layout", "", "YAML layout file to import")
	fs.StringVar(&opts.loadID, "load", "", "id of a stored graph to open")
	fs.StringVar(&opts.out, "out", "", "write the resulting graph to this YAML layout file")
	fs.StringVar(&opts.graphID, "graph-id", "", "id for a new graph (random when empty)")
	fs.StringVar(&opts.name, "name", "Untitled", "name for a new graph")
	fs.BoolVar(&opts.list, "list", false, "list stored graphs and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if opts.layoutIn != "" && opts.loadID != "" {
		log.Printf("-layout and -load are mutually exclusive")
		return 2
	}

	var cfg config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.Defaults()
	}
	if err != nil {
		log.Printf("loading config: %v", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Printf("creating logger: %v", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("roomgraph failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return 1
	}
	logger.Info("done", zap.Duration("elapsed", time.Since(start)))
	return 0
}

func run(ctx context.Context, cfg config.Config, opts options, logger *zap.Logger) error {
	registry, err := loadRegistry(cfg, opts.typesPath)
	if err != nil {
		return err
	}
	logger.Info("room types loaded", zap.Int("count", registry.Len()))

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	if opts.list {
		return listGraphs(ctx, repo)
	}

	graphOpts := []graph.Option{graph.WithMaxChildCorridors(cfg.Editor.MaxChildCorridors)}
	g, err := openGraph(ctx, registry, repo, opts, graphOpts)
	if err != nil {
		return err
	}

	session := editor.New(registry,
		editor.WithLogger(logger),
		editor.WithNodeSize(cfg.Editor.NodeWidth, cfg.Editor.NodeHeight),
	)
	session.OnActiveGraphChanged(func(_, current *graph.Graph) {
		if current != nil {
			logger.Info("active graph", zap.String("graph_id", current.ID), zap.String("name", current.Name))
		}
	})
	session.SetActiveGraph(g)

	var mirror *storage.Mirror
	if repo != nil {
		mirror, err = storage.Attach(ctx, g, repo, logger)
		if err != nil {
			return fmt.Errorf("saving graph %q: %w", g.ID, err)
		}
	}

	if opts.script != "" {
		if err := runScript(ctx, session, logger, cfg.Scripting.InstructionLimit, opts.script); err != nil {
			return err
		}
	}

	if err := g.CheckInvariants(); err != nil {
		return err
	}

	if repo != nil {
		// The mirror only tracks node lifecycle; the final save records edges and moves.
		if err := repo.SaveGraph(ctx, g.Snapshot()); err != nil {
			return fmt.Errorf("saving graph %q: %w", g.ID, err)
		}
		if err := mirror.Err(); err != nil {
			logger.Warn("node mirroring reported errors before the final save", zap.Error(err))
		}
	}

	if opts.out != "" {
		if err := layout.SaveFile(opts.out, g); err != nil {
			return err
		}
		logger.Info("layout written", zap.String("path", opts.out))
	}

	fields := []zap.Field{
		zap.String("graph_id", g.ID),
		zap.String("name", g.Name),
		zap.Int("nodes", g.Len()),
		zap.Int("edges", len(g.Edges())),
	}
	if boss, ok := g.ConnectedBossID(); ok {
		fields = append(fields, zap.String("boss_id", boss))
	}
	logger.Info("graph summary", fields...)
	return nil
}

func loadRegistry(cfg config.Config, override string) (*roomtype.Registry, error) {
	path := cfg.RoomTypes.Path
	if override != "" {
		path = override
	}
	if path == "" {
		return roomtype.Default(), nil
	}
	return roomtype.LoadFromFile(path)
}

// openRepository returns a nil repository for the "none" driver.
func openRepository(ctx context.Context, cfg config.Config) (storage.GraphRepository, func(), error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		repo, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		return pool.Graphs(), pool.Close, nil
	default:
		return nil, func() {}, nil
	}
}

func listGraphs(ctx context.Context, repo storage.GraphRepository) error {
	if repo == nil {
		return errors.New("-list requires a storage driver")
	}
	summaries, err := repo.ListGraphs(ctx)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		fmt.Fprintf(os.Stdout, "%s\t%s\t%d nodes\t%s\n", s.ID, s.Name, s.NodeCount, s.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func openGraph(ctx context.Context, registry *roomtype.Registry, repo storage.GraphRepository, opts options, graphOpts []graph.Option) (*graph.Graph, error) {
	switch {
	case opts.layoutIn != "":
		return layout.LoadFile(opts.layoutIn, registry, graphOpts...)
	case opts.loadID != "":
		if repo == nil {
			return nil, errors.New("-load requires a storage driver")
		}
		snap, err := repo.LoadGraph(ctx, opts.loadID)
		if err != nil {
			return nil, fmt.Errorf("loading graph %q: %w", opts.loadID, err)
		}
		return graph.FromSnapshot(snap, registry, graphOpts...)
	default:
		return graph.New(opts.graphID, opts.name, registry, graphOpts...), nil
	}
}

func runScript(ctx context.Context, session *editor.Session, logger *zap.Logger, instLimit int, path string) error {
	runner := scripting.NewRunner(session, logger, instLimit)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading script %q: %w", path, err)
	}
	if info.IsDir() {
		return runner.RunDir(ctx, path)
	}
	return runner.RunFile(ctx, path)
}
