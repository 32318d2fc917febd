package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zoonderkins/augment-lite/internal/mcp"
	"github.com/zoonderkins/augment-lite/internal/watch"
)

func newServeCmd() *cobra.Command {
	var watchFiles bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Serve speaks MCP over stdio for agent clients. With --watch, file
changes in the active project schedule incremental indexing in the
background instead of being detected on the next search.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), watchFiles)
		},
	}

	cmd.Flags().BoolVar(&watchFiles, "watch", false, "Watch the active project for changes")
	return cmd
}

func runServe(ctx context.Context, watchFiles bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := mcp.NewServer(mcp.Deps{
		Config:       a.cfg,
		Registry:     a.registry,
		Paths:        a.paths,
		Stores:       a.stores,
		Indexer:      a.indexer,
		Engine:       a.engine,
		Orchestrator: a.orch,
		Caches:       a.caches,
		Longterm:     a.longterm,
		Tasks:        a.tasks,
		Logger:       slog.Default(),
		Cwd:          a.cwd,
	})
	if err != nil {
		return err
	}

	if watchFiles {
		if proj := a.registry.Active(); proj != nil {
			w, err := watch.New(proj.Root, watch.DefaultDebounce, func(wctx context.Context) {
				if _, err := a.indexer.AutoIndexIfNeeded(wctx, proj); err != nil {
					slog.Warn("watch_index_failed", slog.String("error", err.Error()))
				}
			})
			if err != nil {
				slog.Warn("watcher_unavailable", slog.String("error", err.Error()))
			} else {
				defer w.Close()
				go w.Run(ctx)
			}
		}
	}

	return server.Serve(ctx)
}
