// Package slug derives document slugs from storage paths and normalises
// requested identifiers so they can be compared against them.
package slug

import (
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	// separatorRun matches runs of underscores and whitespace.
	separatorRun = regexp.MustCompile(`[_\s]+`)
	// spaceRun collapses repeated spaces left by title conversion.
	spaceRun = regexp.MustCompile(` {2,}`)
)

// Extensions lists the document extensions, lower-case, that discovery
// picks up and slugs drop.
var Extensions = []string{".md", ".mdx"}

// HasDocumentExt reports whether name ends in a document extension,
// ignoring case.
func HasDocumentExt(name string) bool {
	return trimExt(name) != name
}

// trimExt removes a trailing document extension, ignoring case.
func trimExt(s string) string {
	lower := strings.ToLower(s)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return s[:len(s)-len(ext)]
		}
	}
	return s
}

// FromPath returns the slug for a slash-separated storage path below root:
// the root prefix and the document extension are removed. It reports false
// when p does not live under root or names no document.
func FromPath(root, p string) (string, bool) {
	root = strings.Trim(path.Clean("/"+root), "/")
	p = path.Clean(p)

	rel := p
	if root != "" {
		if !strings.HasPrefix(p, root+"/") {
			return "", false
		}
		rel = p[len(root)+1:]
	}

	s := trimExt(rel)
	if s == rel || s == "" || strings.HasSuffix(s, "/") {
		return "", false
	}
	return s, true
}

// Normalize folds s into the form used for slug comparison: NFC, lower
// case, trimmed, without a document extension, forward slashes only, and
// runs of underscores or whitespace replaced by a single hyphen.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	s = strings.TrimSpace(s)
	s = trimExt(s)
	s = strings.ReplaceAll(s, `\`, "/")
	return separatorRun.ReplaceAllString(s, "-")
}

// Leaf returns the last path segment of a slug.
func Leaf(s string) string {
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Title turns the last segment of a slug into a readable title:
// "open-a-bank_account" becomes "Open A Bank Account".
func Title(s string) string {
	words := strings.NewReplacer("-", " ", "_", " ").Replace(Leaf(s))
	words = strings.TrimSpace(spaceRun.ReplaceAllString(words, " "))
	return cases.Title(language.English).String(words)
}
