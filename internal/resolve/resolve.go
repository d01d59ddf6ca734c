// Package resolve maps a requested slug onto at most one document of a
// discovery snapshot. A miss is an ordinary outcome reported by the
// boolean result, never an error.
package resolve

import (
	"strings"

	"github.com/formationhub/contentd/internal/content"
	"github.com/formationhub/contentd/internal/slug"
)

// Post returns the post matching requested.
func Post(snap *content.Snapshot, requested string) (content.Document, bool) {
	if snap == nil {
		return content.Document{}, false
	}
	return match(snap.Posts, "", requested, false)
}

// Tutorial returns the tutorial in category matching requested.
func Tutorial(snap *content.Snapshot, category, requested string) (content.Document, bool) {
	if snap == nil {
		return content.Document{}, false
	}
	return match(snap.Tutorials, category, requested, true)
}

// match tries an exact normalised comparison over every document first,
// then a suffix fallback. The first document satisfying a rule wins.
func match(docs []content.Document, category, requested string, scoped bool) (content.Document, bool) {
	want := slug.Normalize(requested)
	if want == "" {
		return content.Document{}, false
	}

	for _, d := range docs {
		if scoped && !strings.EqualFold(d.Category, category) {
			continue
		}
		if slug.Normalize(d.Slug) == want {
			return d, true
		}
	}

	raw := strings.ToLower(strings.TrimSpace(requested))
	prefix := strings.ToLower(category) + "/"

	for _, d := range docs {
		have := strings.ToLower(d.Slug)
		if scoped && !strings.HasPrefix(have, prefix) && !strings.EqualFold(d.Category, category) {
			continue
		}
		if hasSegmentSuffix(have, raw) {
			return d, true
		}
	}

	return content.Document{}, false
}

// hasSegmentSuffix reports whether s ends with suffix starting at a path
// segment boundary, so "a" matches "docs/a" but not "docs/banana".
func hasSegmentSuffix(s, suffix string) bool {
	if !strings.HasSuffix(s, suffix) {
		return false
	}
	if len(s) == len(suffix) {
		return true
	}
	return strings.HasPrefix(suffix, "/") || s[len(s)-len(suffix)-1] == '/'
}
