// Package search finds documents in a snapshot by title, tag and body
// text. Matching is case-insensitive and literal.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/formationhub/contentd/internal/content"
)

// DefaultLimit caps results when the caller does not ask for a limit.
const DefaultLimit = 20

// snippetContext is the number of bytes kept either side of a match.
const snippetContext = 50

// Match types, in ranking order.
const (
	MatchTitle   = "title"
	MatchTag     = "tag"
	MatchContent = "content"
)

// Match is a single search hit.
type Match struct {
	Document  content.Document `json:"document"`
	MatchType string           `json:"matchType"`
	Snippet   string           `json:"snippet"`
	// Line is the 1-indexed body line of a content match.
	Line int `json:"line,omitempty"`
}

// Result is the response to a query.
type Result struct {
	Query   string  `json:"query"`
	Total   int     `json:"total"`
	Matches []Match `json:"matches"`
}

// Options narrows a search.
type Options struct {
	Limit int
	// Kind restricts results to one document type. Empty searches both.
	Kind content.Kind
	// CanRead reports whether the caller may read a document's body. Bodies
	// of documents it rejects are not searched. Nil allows every body.
	CanRead func(content.Document) bool
}

// Search runs query against snap. Title and slug hits rank first, then
// tag hits, then body hits; each document appears at most once.
func Search(ctx context.Context, snap *content.Snapshot, query string, opts Options) (*Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}

	result := &Result{Query: query, Matches: []Match{}}

	lowerQuery := strings.ToLower(strings.TrimSpace(query))
	if lowerQuery == "" {
		return result, nil
	}

	docs := candidates(snap, opts.Kind)
	seen := make(map[string]bool)

	add := func(m Match) bool {
		result.Matches = append(result.Matches, m)
		seen[m.Document.Key()] = true
		return len(result.Matches) >= opts.Limit
	}

	// Phase 1: title and slug matches.
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.Title), lowerQuery) || strings.Contains(strings.ToLower(d.Slug), lowerQuery) {
			if add(Match{Document: d, MatchType: MatchTitle, Snippet: d.Title}) {
				return finish(result), nil
			}
		}
	}

	// Phase 2: tag matches.
	for _, d := range docs {
		if seen[d.Key()] {
			continue
		}
		for _, tag := range d.Tags {
			if strings.Contains(strings.ToLower(tag), lowerQuery) {
				if add(Match{Document: d, MatchType: MatchTag, Snippet: fmt.Sprintf("tags: [%s]", strings.Join(d.Tags, ", "))}) {
					return finish(result), nil
				}
				break
			}
		}
	}

	// Phase 3: body matches.
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seen[d.Key()] || (opts.CanRead != nil && !opts.CanRead(d)) {
			continue
		}

		body, err := snap.Body(ctx, d)
		if err != nil {
			continue
		}

		line, snippet, ok := findLine(body, lowerQuery)
		if !ok {
			continue
		}
		if add(Match{Document: d, MatchType: MatchContent, Snippet: snippet, Line: line}) {
			break
		}
	}

	return finish(result), nil
}

func finish(r *Result) *Result {
	r.Total = len(r.Matches)
	return r
}

func candidates(snap *content.Snapshot, kind content.Kind) []content.Document {
	switch kind {
	case content.KindPost:
		return snap.Posts
	case content.KindTutorial:
		return snap.Tutorials
	}
	docs := make([]content.Document, 0, len(snap.Posts)+len(snap.Tutorials))
	docs = append(docs, snap.Posts...)
	return append(docs, snap.Tutorials...)
}

// findLine returns the first body line containing lowerQuery.
func findLine(body, lowerQuery string) (int, string, bool) {
	for i, line := range strings.Split(body, "\n") {
		lowerLine := strings.ToLower(line)
		idx := strings.Index(lowerLine, lowerQuery)
		if idx < 0 {
			continue
		}
		// Lower-casing changed byte offsets; fall back to the plain line.
		if len(lowerLine) != len(line) {
			return i + 1, truncateLine(line, 2*snippetContext), true
		}
		return i + 1, buildSnippet(line, idx, len(lowerQuery)), true
	}
	return 0, "", false
}

// buildSnippet creates a context snippet around a match, bolding the match.
// matchStart and matchLen are byte offsets into the line string.
func buildSnippet(line string, matchStart, matchLen int) string {
	start := max(matchStart-snippetContext, 0)
	end := min(matchStart+matchLen+snippetContext, len(line))

	prefix := ""
	if start > 0 {
		prefix = "..."
	}

	suffix := ""
	if end < len(line) {
		suffix = "..."
	}

	return prefix + line[start:matchStart] + "**" + line[matchStart:matchStart+matchLen] + "**" + line[matchStart+matchLen:end] + suffix
}

// truncateLine shortens a line to maxLen bytes, adding ellipsis.
func truncateLine(line string, maxLen int) string {
	if len(line) <= maxLen {
		return line
	}
	return line[:maxLen] + "..."
}
