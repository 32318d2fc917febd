package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zoonderkins/augment-lite/internal/output"
)

func newStatusCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show registered projects and index sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			type projectStatus struct {
				Name       string `json:"name"`
				ID         string `json:"id"`
				Root       string `json:"root"`
				Active     bool   `json:"active"`
				ChunkCount int    `json:"chunk_count"`
			}

			var statuses []projectStatus
			for _, p := range a.registry.List() {
				st := projectStatus{Name: p.Name, ID: p.ID, Root: p.Root, Active: p.Active}
				if chunks, err := a.stores.Chunks(p.Name); err == nil {
					st.ChunkCount = len(chunks)
				}
				statuses = append(statuses, st)
			}

			if len(statuses) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no projects registered; run 'augmentlite index' in a repository")
				return nil
			}
			return output.New(cmd.OutOrStdout(), jsonOut).JSON(statuses)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "JSON output")
	return cmd
}
