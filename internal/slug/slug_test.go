package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromPath(t *testing.T) {
	tests := []struct {
		root, path string
		want       string
		ok         bool
	}{
		{"blog", "blog/hello-world.md", "hello-world", true},
		{"blog", "blog/2024/tax-tips.mdx", "2024/tax-tips", true},
		{"blog/", "blog/Upper.MD", "Upper", true},
		{"learn", "learn/banking/open-account.md", "banking/open-account", true},
		{"", "notes/a.md", "notes/a", true},
		{"blog", "learn/other.md", "", false},
		{"blog", "blogger/post.md", "", false},
		{"blog", "blog/image.png", "", false},
		{"blog", "blog/.md", "", false},
	}
	for _, tt := range tests {
		got, ok := FromPath(tt.root, tt.path)
		assert.Equal(t, tt.ok, ok, "FromPath(%q, %q)", tt.root, tt.path)
		assert.Equal(t, tt.want, got, "FromPath(%q, %q)", tt.root, tt.path)
	}
}

func TestFromPath_IndependentOfCallOrder(t *testing.T) {
	first, _ := FromPath("learn", "learn/tax/vat-registration.md")
	for i := 0; i < 5; i++ {
		again, _ := FromPath("learn", "learn/tax/vat-registration.md")
		assert.Equal(t, first, again)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  hello-world  ", "hello-world"},
		{"hello-world.md", "hello-world"},
		{"Hello-World.MDX", "hello-world"},
		{`banking\open_account`, "banking/open-account"},
		{"tax__tips \t 2024", "tax-tips-2024"},
		{"Caf\u00e9", "caf\u00e9"},
		{"cafe\u0301", "caf\u00e9"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestHasDocumentExt(t *testing.T) {
	assert.True(t, HasDocumentExt("a.md"))
	assert.True(t, HasDocumentExt("a.MDX"))
	assert.False(t, HasDocumentExt("a.markdown"))
	assert.False(t, HasDocumentExt("md"))
}

func TestTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello-world", "Hello World"},
		{"banking/open_a-bank--account", "Open A Bank Account"},
		{"vat", "Vat"},
		{"2024/year-end-checklist", "Year End Checklist"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Title(tt.in), "Title(%q)", tt.in)
	}
}

func TestLeaf(t *testing.T) {
	assert.Equal(t, "b", Leaf("a/b"))
	assert.Equal(t, "a", Leaf("a"))
}
