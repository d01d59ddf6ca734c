// Package render converts document bodies to HTML with goldmark and can
// keep the results in a shared cache keyed by discovery pass.
package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/formationhub/contentd/internal/logging"
)

// Cache stores rendered HTML. Implementations must be safe for
// concurrent use; a failed Get is a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, html []byte)
}

// Renderer turns markdown into HTML.
type Renderer struct {
	md     goldmark.Markdown
	cache  Cache
	logger *slog.Logger
}

// New returns a Renderer. cache may be nil.
func New(cache Cache, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = logging.Discard()
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(), // documents embed callout HTML
		),
	)

	return &Renderer{md: md, cache: cache, logger: logger}
}

// HTML converts source. Without a key, or without a cache, the result is
// not cached.
func (r *Renderer) HTML(ctx context.Context, key, source string) (string, error) {
	if r.cache != nil && key != "" {
		if cached, ok := r.cache.Get(ctx, key); ok {
			return string(cached), nil
		}
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	if r.cache != nil && key != "" {
		r.cache.Set(ctx, key, buf.Bytes())
		r.logger.Debug("rendered and cached", slog.String("key", key))
	}

	return buf.String(), nil
}

// Key builds the cache key for a document body within one pass. A new
// pass changes every key, so stale entries simply expire.
func Key(passID, sourceRef string) string {
	if passID == "" {
		return ""
	}
	return passID + ":" + sourceRef
}
