package content

import (
	"context"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSnapshot_BodyEagerServedFromMemory(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockFileReader(ctrl)

	fsys := fstest.MapFS{"blog/a.md": file(""), "learn/.keep": file("")}
	reader.EXPECT().ReadFile(gomock.Any(), "blog/a.md").
		Return([]byte("---\ntitle: A\n---\n# Heading\n"), nil).Times(1)

	opts := testOptions(ModeEager)
	opts.Reader = reader

	snap, err := NewDiscoverer(fsys, opts).Discover(context.Background())
	require.NoError(t, err)

	body, err := snap.Body(context.Background(), snap.Posts[0])
	require.NoError(t, err)
	assert.Equal(t, "# Heading\n", body)
}

func TestSnapshot_BodyLazyReadsOnDemand(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockFileReader(ctrl)

	fsys := fstest.MapFS{"blog/a.md": file(""), "learn/.keep": file("")}
	reader.EXPECT().ReadFile(gomock.Any(), "blog/a.md").
		Return([]byte("---\ntitle: A\n---\n# Heading\n"), nil).Times(2)

	opts := testOptions(ModeLazy)
	opts.Reader = reader

	snap, err := NewDiscoverer(fsys, opts).Discover(context.Background())
	require.NoError(t, err)

	body, err := snap.Body(context.Background(), snap.Posts[0])
	require.NoError(t, err)
	assert.Equal(t, "# Heading\n", body)
}

func TestSnapshot_BodyReadFailure(t *testing.T) {
	fsys := fstest.MapFS{"blog/a.md": file("x"), "learn/.keep": file("")}

	snap, err := NewDiscoverer(fsys, testOptions(ModeLazy)).Discover(context.Background())
	require.NoError(t, err)

	delete(fsys, "blog/a.md")

	_, err = snap.Body(context.Background(), snap.Posts[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blog/a.md")
}

func TestSnapshot_BodyWithoutReader(t *testing.T) {
	_, err := (&Snapshot{}).Body(context.Background(), Document{SourceRef: "blog/x.md"})
	require.Error(t, err)
}

func TestSnapshot_CategoriesAndDocuments(t *testing.T) {
	snap, err := NewDiscoverer(siteFS(), testOptions(ModeEager)).Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"banking", "general", "tax"}, snap.Categories())
	assert.Equal(t, snap.Posts, snap.Documents(KindPost))
	assert.Equal(t, snap.Tutorials, snap.Documents(KindTutorial))
}

func TestFilter(t *testing.T) {
	docs := []Document{
		{Slug: "a", Category: "banking", Tags: []string{"Fees"}},
		{Slug: "b", Category: "tax", Tags: []string{"vat"}},
		{Slug: "c", Category: "Banking", Tags: []string{"vat"}},
	}

	assert.Equal(t, []string{"a", "b", "c"}, slugs(Filter(docs, "", "")))
	assert.Equal(t, []string{"a", "c"}, slugs(Filter(docs, "banking", "")))
	assert.Equal(t, []string{"b", "c"}, slugs(Filter(docs, "", "VAT")))
	assert.Equal(t, []string{"c"}, slugs(Filter(docs, "BANKING", "vat")))
	assert.Empty(t, Filter(docs, "payroll", ""))
}

func TestDocument_Key(t *testing.T) {
	post := Document{Type: KindPost, Slug: "Hello_World"}
	assert.Equal(t, "post:hello-world", post.Key())

	tut := Document{Type: KindTutorial, Category: "Banking", Slug: "Banking/Open Account"}
	assert.Equal(t, "tutorial:banking:banking/open-account", tut.Key())
}

func TestDocument_Published(t *testing.T) {
	assert.Equal(t, 2024, Document{Date: "2024-05-01"}.Published().Year())
	assert.Equal(t, 2024, Document{Date: "2024-05-01T10:00:00Z"}.Published().Year())
	assert.Equal(t, 2024, Document{Date: "2024-05-01 10:00:00"}.Published().Year())
	assert.True(t, Document{Date: "May 1st"}.Published().IsZero())
	assert.True(t, Document{}.Published().IsZero())
}

func TestSortByDate(t *testing.T) {
	docs := []Document{
		{Slug: "A", Date: "2024-01-01"},
		{Slug: "B", Date: "2025-06-01"},
		{Slug: "C", Date: "2024-01-01"},
		{Slug: "D"},
		{Slug: "E", Date: "2023-12-31"},
	}
	SortByDate(docs)
	assert.Equal(t, []string{"B", "A", "C", "E", "D"}, slugs(docs))
}

func TestHolder_LoadBeforeStore(t *testing.T) {
	h := &Holder{}
	snap := h.Load()
	require.NotNil(t, snap)
	assert.Empty(t, snap.Posts)
}

func TestHolder_ConcurrentSwap(t *testing.T) {
	first := &Snapshot{PassID: "one"}
	second := &Snapshot{PassID: "two"}
	h := NewHolder(first)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := h.Load().PassID
			assert.Contains(t, []string{"one", "two"}, id)
		}()
	}
	h.Store(second)
	wg.Wait()

	assert.Equal(t, "two", h.Load().PassID)
}
