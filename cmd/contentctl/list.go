package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/formationhub/contentd/internal/content"
)

func newListCmd(e *env) *cobra.Command {
	var (
		category string
		tag      string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:       "list posts|tutorials",
		Short:     "List documents newest first",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"posts", "tutorials"},
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := e.discover(cmd.Context())
			if err != nil {
				return err
			}

			kind := content.KindPost
			if args[0] == "tutorials" {
				kind = content.KindTutorial
			}
			docs := content.Filter(snap.Documents(kind), category, tag)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(docs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tDATE\tTIER\tTITLE\tTAGS")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Slug, d.Date, d.Tier, d.Title, strings.Join(d.Tags, ","))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only tutorials in this category")
	cmd.Flags().StringVar(&tag, "tag", "", "only documents with this tag")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print documents as JSON")

	return cmd
}
