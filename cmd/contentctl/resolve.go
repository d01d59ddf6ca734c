package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formationhub/contentd/internal/content"
	cerrors "github.com/formationhub/contentd/internal/errors"
	"github.com/formationhub/contentd/internal/resolve"
)

func newResolveCmd(e *env) *cobra.Command {
	var body bool

	cmd := &cobra.Command{
		Use:   "resolve post <slug> | resolve tutorial <category> <slug>",
		Short: "Show which document a requested slug resolves to",
		Args: func(_ *cobra.Command, args []string) error {
			switch {
			case len(args) == 2 && args[0] == "post":
				return nil
			case len(args) == 3 && args[0] == "tutorial":
				return nil
			}
			return fmt.Errorf("want \"post <slug>\" or \"tutorial <category> <slug>\"")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := e.discover(cmd.Context())
			if err != nil {
				return err
			}

			var (
				doc content.Document
				ok  bool
			)
			if args[0] == "post" {
				doc, ok = resolve.Post(snap, args[1])
			} else {
				doc, ok = resolve.Tutorial(snap, args[1], args[2])
			}
			if !ok {
				return fmt.Errorf("%s %q: %w", args[0], args[len(args)-1], cerrors.ErrDocumentNotFound)
			}

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(doc); err != nil {
				return err
			}

			if body {
				text, err := snap.Body(cmd.Context(), doc)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "---")
				fmt.Fprint(out, text)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&body, "body", false, "also print the markdown body")

	return cmd
}
