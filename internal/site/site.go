// Package site loads the site description shared by discovery, the API
// and tier gating: the author identity used when a document names none,
// the tutorial categories shown in navigation, and the ordered list of
// subscription tiers.
package site

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultAuthor is the identity used when neither SITE_AUTHOR nor the
// site file provides one.
const DefaultAuthor = "Formation Hub Team"

// DefaultTiers lists subscription tiers from lowest to highest.
var DefaultTiers = []string{"free", "starter", "professional"}

// Category is one tutorial category exposed in navigation.
type Category struct {
	Slug        string `yaml:"slug" json:"slug"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// Site is the parsed site file.
type Site struct {
	Name       string     `yaml:"name" json:"name"`
	Author     string     `yaml:"author" json:"author"`
	Categories []Category `yaml:"categories" json:"categories"`
	Tiers      []string   `yaml:"tiers" json:"tiers"`
}

// Default returns the site used when no site file is configured.
func Default() *Site {
	return &Site{
		Name:   "Formation Hub",
		Author: DefaultAuthor,
		Tiers:  append([]string(nil), DefaultTiers...),
	}
}

// Load reads and validates a site file. An empty path returns Default.
func Load(path string) (*Site, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading site file: %w", err)
	}

	return Parse(data)
}

// Parse decodes site YAML, filling unset fields from Default.
func Parse(data []byte) (*Site, error) {
	s := &Site{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decoding site file: %w", err)
	}

	def := Default()
	if s.Name == "" {
		s.Name = def.Name
	}
	if strings.TrimSpace(s.Author) == "" {
		s.Author = def.Author
	}
	if len(s.Tiers) == 0 {
		s.Tiers = def.Tiers
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Site) validate() error {
	seenTier := make(map[string]struct{}, len(s.Tiers))
	for i, tier := range s.Tiers {
		tier = strings.ToLower(strings.TrimSpace(tier))
		if tier == "" {
			return fmt.Errorf("tier %d is empty", i+1)
		}
		if _, dup := seenTier[tier]; dup {
			return fmt.Errorf("duplicate tier %q", tier)
		}
		seenTier[tier] = struct{}{}
		s.Tiers[i] = tier
	}

	seenCat := make(map[string]struct{}, len(s.Categories))
	for i, c := range s.Categories {
		slug := strings.ToLower(strings.TrimSpace(c.Slug))
		if slug == "" || strings.Contains(slug, "/") {
			return fmt.Errorf("category %d must have a single-segment slug", i+1)
		}
		if _, dup := seenCat[slug]; dup {
			return fmt.Errorf("duplicate category %q", slug)
		}
		seenCat[slug] = struct{}{}
		s.Categories[i].Slug = slug
		if s.Categories[i].Title == "" {
			s.Categories[i].Title = c.Slug
		}
	}

	return nil
}

// HasCategory reports whether slug is a navigation category. A site with
// no categories configured accepts every category.
func (s *Site) HasCategory(slug string) bool {
	if len(s.Categories) == 0 {
		return true
	}
	slug = strings.ToLower(slug)
	for _, c := range s.Categories {
		if c.Slug == slug {
			return true
		}
	}
	return false
}

// TierRank returns the position of tier in the tier order and whether it
// is known. The empty tier ranks as the lowest tier.
func (s *Site) TierRank(tier string) (int, bool) {
	tier = strings.ToLower(strings.TrimSpace(tier))
	if tier == "" {
		return 0, true
	}
	for i, t := range s.Tiers {
		if t == tier {
			return i, true
		}
	}
	return 0, false
}

// LowestTier returns the first configured tier.
func (s *Site) LowestTier() string {
	if len(s.Tiers) == 0 {
		return DefaultTiers[0]
	}
	return s.Tiers[0]
}

// Allows reports whether a holder of tier may read content gated at
// required. Unknown required tiers are treated as the highest tier so a
// typo never exposes gated content.
func (s *Site) Allows(tier, required string) bool {
	need, ok := s.TierRank(required)
	if !ok {
		need = len(s.Tiers)
	}
	have, ok := s.TierRank(tier)
	if !ok {
		return need == 0
	}
	return have >= need
}
