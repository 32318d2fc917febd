package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/zoonderkins/augment-lite/internal/output"
	"github.com/zoonderkins/augment-lite/internal/project"
	"github.com/zoonderkins/augment-lite/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		k           int
		projectName string
		subagent    bool
		iterative   bool
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			query := strings.Join(args, " ")
			name, err := a.registry.Resolve(projectName)
			if err != nil {
				return err
			}

			if proj := a.registry.Get(name); proj != nil {
				if _, err := a.indexer.AutoIndexIfNeeded(cmd.Context(), proj); err != nil {
					return err
				}
			}

			if iterative {
				found, err := a.engine.IterativeSearch(cmd.Context(), name, query, search.IterativeOptions{
					KPerIteration: k,
					UseSubagent:   subagent,
				})
				if err != nil {
					return err
				}
				return output.New(cmd.OutOrStdout(), jsonOut).Hits(found)
			}

			found, err := a.engine.HybridSearchWithSubagent(cmd.Context(), name, query, k, subagent)
			if err != nil {
				return err
			}
			return output.New(cmd.OutOrStdout(), jsonOut).Hits(found)
		},
	}

	cmd.Flags().IntVarP(&k, "limit", "k", 8, "Number of results")
	cmd.Flags().StringVar(&projectName, "project", project.Auto, "Project name")
	cmd.Flags().BoolVar(&subagent, "subagent", false, "LLM re-ranking")
	cmd.Flags().BoolVar(&iterative, "iterative", false, "Multi-round query expansion")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "JSON output")
	return cmd
}
