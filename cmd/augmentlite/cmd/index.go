package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zoonderkins/augment-lite/internal/index"
	"github.com/zoonderkins/augment-lite/internal/output"
	"github.com/zoonderkins/augment-lite/internal/project"
)

func newIndexCmd() *cobra.Command {
	var (
		projectName string
		root        string
		force       bool
		vectorOnly  bool
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Register and index a project",
		Long: `Index registers the given root (default: current directory) as the
active project and brings its BM25 and vector indices up to date.
--force rebuilds from scratch; --vector-only re-embeds the existing chunks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if root == "" {
				root = a.cwd
			}
			if projectName == "" || projectName == project.Auto {
				projectName = project.SanitizeName(filepath.Base(root))
			}

			proj, err := a.registry.Register(projectName, root)
			if err != nil {
				return err
			}

			var stats *index.Stats
			if force || vectorOnly {
				stats, err = a.indexer.Rebuild(cmd.Context(), proj, vectorOnly)
			} else {
				stats, err = a.indexer.AutoIndexIfNeeded(cmd.Context(), proj)
			}
			if err != nil {
				return fmt.Errorf("index %s: %w", proj.Name, err)
			}

			w := output.New(cmd.OutOrStdout(), jsonOut)
			if stats == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "index is up to date")
				return nil
			}
			return w.JSON(stats)
		},
	}

	cmd.Flags().StringVar(&projectName, "project", "auto", "Project name")
	cmd.Flags().StringVar(&root, "root", "", "Project root (default: current directory)")
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild from scratch")
	cmd.Flags().BoolVar(&vectorOnly, "vector-only", false, "Rebuild only the vector index")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "JSON output")
	return cmd
}
