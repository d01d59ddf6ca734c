// Package app turns configuration into the pieces contentd and contentctl
// share: the site description, a discoverer over the content root and the
// API key store.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/formationhub/contentd/internal/auth"
	"github.com/formationhub/contentd/internal/config"
	"github.com/formationhub/contentd/internal/content"
	"github.com/formationhub/contentd/internal/site"
)

// Content bundles the site description with a discoverer configured for it.
type Content struct {
	Site       *site.Site
	Discoverer *content.Discoverer
}

// NewContent loads the site file and builds a discoverer over the content
// root.
func NewContent(cfg *config.Config, logger *slog.Logger) (*Content, error) {
	s, err := site.Load(cfg.SiteFile)
	if err != nil {
		return nil, fmt.Errorf("loading site: %w", err)
	}

	author := cfg.SiteAuthor
	if author == "" {
		author = s.Author
	}

	d := content.NewDiscoverer(os.DirFS(cfg.ContentRoot), DiscoveryOptions(cfg, s, author, logger))

	return &Content{Site: s, Discoverer: d}, nil
}

// DiscoveryOptions maps configuration onto discoverer options.
func DiscoveryOptions(cfg *config.Config, s *site.Site, author string, logger *slog.Logger) content.Options {
	return content.Options{
		PostsDir:        cfg.PostsRoot(),
		TutorialsDir:    cfg.TutorialsRoot(),
		DefaultCategory: cfg.DefaultCategory,
		SiteAuthor:      author,
		DefaultTier:     s.LowestTier(),
		Mode:            content.Mode(cfg.DiscoveryMode),
		Concurrency:     cfg.DiscoveryConcurrency,
		ReadTimeout:     cfg.DiscoveryReadTimeout,
		StrictSlugs:     cfg.StrictSlugs,
		IncludeDrafts:   cfg.IncludeDrafts,
		KnownCategory:   s.HasCategory,
		Logger:          logger,
	}
}

// NewKeyStore parses API_KEYS and rejects keys granting a tier the site
// does not define.
func NewKeyStore(cfg *config.Config, s *site.Site) (*auth.Store, error) {
	entries, err := cfg.ParseAPIKeys()
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if _, ok := s.TierRank(e.Tier); !ok {
			return nil, fmt.Errorf("API key for %q grants unknown tier %q", e.UserID, e.Tier)
		}
	}

	return auth.NewStore(entries), nil
}

// Rediscover runs a full pass, publishes it to holder and passes it to
// notify. A failed pass keeps the previous snapshot in place.
func Rediscover(ctx context.Context, d *content.Discoverer, holder *content.Holder, notify func(*content.Snapshot), logger *slog.Logger) {
	snap, err := d.Discover(ctx)
	if err != nil {
		logger.Warn("rediscovery failed, keeping previous snapshot", slog.String("error", err.Error()))
		return
	}

	holder.Store(snap)
	if notify != nil {
		notify(snap)
	}

	logger.Info("content reloaded",
		slog.String("pass_id", snap.PassID),
		slog.Int("posts", len(snap.Posts)),
		slog.Int("tutorials", len(snap.Tutorials)),
	)
}
