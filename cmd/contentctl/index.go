package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formationhub/contentd/internal/state"
)

func newIndexCmd(e *env) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Run a discovery pass and write the content index",
		Long: `Runs one discovery pass over CONTENT_ROOT and replaces the bbolt
index at INDEX_PATH with its documents. Sitemap and feed generators read
the index instead of walking the content tree themselves.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = e.cfg.IndexPath
			}

			snap, err := e.discover(cmd.Context())
			if err != nil {
				return err
			}

			idx, err := state.Open(path)
			if err != nil {
				return err
			}
			defer idx.Close()

			pass, err := idx.SaveSnapshot(snap)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "indexed pass %s: %d posts, %d tutorials -> %s\n", pass.ID, pass.Posts, pass.Tutorials, path)
			for _, s := range snap.Skipped {
				fmt.Fprintf(out, "  skipped %s: %s\n", s.SourceRef, s.Reason)
			}
			for _, c := range snap.Collisions {
				fmt.Fprintf(out, "  collision %s: kept %s, dropped %s\n", c.Key, c.Kept, c.Dropped)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&path, "out", "", "index file (defaults to INDEX_PATH)")

	return cmd
}
