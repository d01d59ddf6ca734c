package content

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/formationhub/contentd/internal/frontmatter"
)

// Skip records a file that a pass could not turn into a Document.
type Skip struct {
	SourceRef string `json:"sourceRef"`
	Reason    string `json:"reason"`
}

// Collision records two files that mapped to the same document key. Kept
// is the last discovered file.
type Collision struct {
	Key     string `json:"key"`
	Kept    string `json:"kept"`
	Dropped string `json:"dropped"`
}

// Snapshot is the result of one discovery pass. It is never modified after
// Discover returns and may be shared between goroutines.
type Snapshot struct {
	PassID       string      `json:"passId"`
	Mode         Mode        `json:"mode"`
	DiscoveredAt time.Time   `json:"discoveredAt"`
	Posts        []Document  `json:"posts"`
	Tutorials    []Document  `json:"tutorials"`
	Skipped      []Skip      `json:"skipped,omitempty"`
	Collisions   []Collision `json:"collisions,omitempty"`
	Drafts       int         `json:"drafts"`

	// bodies holds eagerly loaded bodies by source ref. Nil in lazy mode.
	bodies  map[string]string
	reader  FileReader
	timeout time.Duration
}

// Body returns the markdown body of doc, without its frontmatter. Eager
// snapshots answer from memory; lazy snapshots re-read the source.
func (s *Snapshot) Body(ctx context.Context, doc Document) (string, error) {
	if body, ok := s.bodies[doc.SourceRef]; ok {
		return body, nil
	}
	if s.reader == nil {
		return "", fmt.Errorf("snapshot has no reader for %s", doc.SourceRef)
	}

	data, err := readWithTimeout(ctx, s.reader, doc.SourceRef, s.timeout)
	if err != nil {
		return "", fmt.Errorf("reading body of %s: %w", doc.SourceRef, err)
	}

	_, body := frontmatter.Split(string(data))
	return body, nil
}

// Documents returns the documents of kind.
func (s *Snapshot) Documents(kind Kind) []Document {
	if kind == KindTutorial {
		return s.Tutorials
	}
	return s.Posts
}

// Categories returns the distinct tutorial categories, sorted.
func (s *Snapshot) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range s.Tutorials {
		c := strings.ToLower(d.Category)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Filter selects documents by category and tag. Empty arguments match
// everything. Order is preserved.
func Filter(docs []Document, category, tag string) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if category != "" && !strings.EqualFold(d.Category, category) {
			continue
		}
		if tag != "" && !d.HasTag(tag) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Holder publishes the current snapshot to concurrent readers. A pass
// replaces the previous snapshot as a whole.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder returns a Holder publishing snap.
func NewHolder(snap *Snapshot) *Holder {
	h := &Holder{}
	h.Store(snap)
	return h
}

// Load returns the current snapshot, or an empty one before the first
// Store.
func (h *Holder) Load() *Snapshot {
	if s := h.current.Load(); s != nil {
		return s
	}
	return &Snapshot{}
}

// Store publishes snap.
func (h *Holder) Store(snap *Snapshot) {
	h.current.Store(snap)
}
