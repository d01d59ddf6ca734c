// Package content discovers the markdown documents behind the blog and the
// learn hub, normalises each into a Document, and hands callers an
// immutable Snapshot of one discovery pass.
package content

import (
	"strings"
	"time"

	"github.com/formationhub/contentd/internal/frontmatter"
	"github.com/formationhub/contentd/internal/slug"
)

// Kind is the document type.
type Kind string

const (
	KindPost     Kind = "post"
	KindTutorial Kind = "tutorial"
)

// Document is the normalised record of one source file. Field names are
// part of the listing and SEO contract and must stay stable.
type Document struct {
	Type Kind `json:"type"`
	// Slug is the path below the type root without extension. For
	// tutorials it starts with the category segment.
	Slug string `json:"slug"`
	// Name is the slug without its category segment. Equal to Slug for
	// posts.
	Name        string   `json:"name"`
	Category    string   `json:"category,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Author      string   `json:"author"`
	Tags        []string `json:"tags"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
	Image       string   `json:"image,omitempty"`
	Featured    bool     `json:"featured"`
	Draft       bool     `json:"draft"`
	Tier        string   `json:"tier"`
	SourceRef   string   `json:"sourceRef"`
}

// Key identifies a document within one pass: the normalised slug, scoped
// by type and, for tutorials, by category.
func (d Document) Key() string {
	if d.Type == KindTutorial {
		return string(d.Type) + ":" + strings.ToLower(d.Category) + ":" + slug.Normalize(d.Slug)
	}
	return string(d.Type) + ":" + slug.Normalize(d.Slug)
}

// HasTag reports whether the document carries tag, ignoring case.
func (d Document) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Published returns the parsed date, or the zero time when Date is empty.
func (d Document) Published() time.Time {
	t, _ := parseDate(d.Date)
	return t
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// defaults carries the fallbacks applied while building a Document.
type defaults struct {
	author   string
	category string
	tier     string
}

// location is where a document lives: its type and slug parts, all
// derived from the storage path alone.
type location struct {
	kind     Kind
	ref      string
	slug     string
	name     string
	category string
}

// locate derives the slug parts of a storage path below root. Tutorials
// stored directly under root get the default category.
func locate(kind Kind, root, ref, defaultCategory string) (location, bool) {
	s, ok := slug.FromPath(root, ref)
	if !ok {
		return location{}, false
	}

	loc := location{kind: kind, ref: ref, slug: s, name: s}
	if kind != KindTutorial {
		return loc, true
	}

	if i := strings.IndexByte(s, '/'); i >= 0 {
		loc.category = s[:i]
		loc.name = s[i+1:]
	} else {
		loc.category = defaultCategory
	}

	return loc, true
}

// build folds parsed frontmatter into a Document, applying the documented
// fallback for every field left empty.
func build(loc location, fm frontmatter.Map, def defaults) Document {
	doc := Document{
		Type:        loc.kind,
		Slug:        loc.slug,
		Name:        loc.name,
		Category:    loc.category,
		Title:       fm.String("title"),
		Description: fm.First("description", "excerpt", "summary"),
		Author:      fm.String("author"),
		Tags:        fm.List("tags"),
		Image:       fm.First("image", "coverImage"),
		Featured:    fm.Bool("featured"),
		Draft:       fm.Bool("draft"),
		Tier:        strings.ToLower(fm.String("tier")),
		SourceRef:   loc.ref,
	}

	if date := fm.First("date", "publishedAt"); date != "" {
		if _, ok := parseDate(date); ok {
			doc.Date = date
		}
	}

	if loc.kind == KindTutorial {
		if updated := fm.First("lastUpdated", "last_updated", "updated"); updated != "" {
			if _, ok := parseDate(updated); ok {
				doc.LastUpdated = updated
			}
		}
	}

	if doc.Title == "" {
		doc.Title = slug.Title(loc.slug)
	}
	if doc.Author == "" {
		doc.Author = def.author
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if doc.Tier == "" {
		doc.Tier = def.tier
	}

	return doc
}
