package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/formationhub/contentd/internal/frontmatter"
	"github.com/formationhub/contentd/internal/slug"
)

func newNewCmd(e *env) *cobra.Command {
	var (
		title       string
		description string
		tags        []string
		tier        string
		draft       bool
	)

	cmd := &cobra.Command{
		Use:   "new post|tutorial <path>",
		Short: "Scaffold a document with a frontmatter block",
		Long: `Creates a markdown file under the posts or tutorials root. For
tutorials the path starts with the category, e.g. "banking/open-account".
Existing files are never overwritten.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"post", "tutorial"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var root string
			switch args[0] {
			case "post":
				root = e.cfg.PostsRoot()
			case "tutorial":
				root = e.cfg.TutorialsRoot()
			default:
				return fmt.Errorf("unknown document type %q", args[0])
			}

			rel := slug.Normalize(args[1])
			if rel == "" || strings.HasPrefix(rel, "/") || strings.Contains(rel, "..") {
				return fmt.Errorf("invalid document path %q", args[1])
			}

			if title == "" {
				title = slug.Title(rel)
			}
			if tier == "" {
				tier = e.content.Site.LowestTier()
			}
			if _, ok := e.content.Site.TierRank(tier); !ok {
				return fmt.Errorf("unknown tier %q", tier)
			}

			fm := frontmatter.Map{
				"title":       frontmatter.StringValue(title),
				"description": frontmatter.StringValue(description),
				"date":        frontmatter.StringValue(time.Now().Format("2006-01-02")),
				"tags":        frontmatter.ListValue(tags...),
				"tier":        frontmatter.StringValue(strings.ToLower(tier)),
			}
			if draft {
				fm["draft"] = frontmatter.BoolValue(true)
			}

			target := filepath.Join(e.cfg.ContentRoot, filepath.FromSlash(path.Join(root, rel+".md")))
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("creating directory: %w", err)
			}

			f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
			if err != nil {
				if errors.Is(err, fs.ErrExist) {
					return fmt.Errorf("%s already exists", target)
				}
				return err
			}
			defer f.Close()

			if _, err := f.WriteString(frontmatter.Render(fm) + "\n# " + title + "\n"); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), target)

			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "document title (defaults to the title-cased name)")
	cmd.Flags().StringVar(&description, "description", "", "meta description")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag, repeatable")
	cmd.Flags().StringVar(&tier, "tier", "", "subscription tier required to read the body")
	cmd.Flags().BoolVar(&draft, "draft", false, "mark the document as a draft")

	return cmd
}
