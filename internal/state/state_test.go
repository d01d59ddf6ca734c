package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formationhub/contentd/internal/content"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	x, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { x.Close() })
	return x
}

func testSnapshot(id string) *content.Snapshot {
	return &content.Snapshot{
		PassID:       id,
		Mode:         content.ModeEager,
		DiscoveredAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Posts: []content.Document{
			{Type: content.KindPost, Slug: "newest", Name: "newest", Date: "2024-04-01", Tags: []string{}},
			{Type: content.KindPost, Slug: "older", Name: "older", Date: "2023-01-01", Tags: []string{"vat"}},
		},
		Tutorials: []content.Document{
			{Type: content.KindTutorial, Slug: "banking/open-account", Name: "open-account", Category: "banking", Tags: []string{}},
		},
		Skipped: []content.Skip{{SourceRef: "blog/broken.md", Reason: "read timeout"}},
	}
}

// --- Open / Close ---

func TestOpen_CreatesDB(t *testing.T) {
	x, err := Open(filepath.Join(t.TempDir(), "sub", "index.db"))
	require.NoError(t, err)
	require.NoError(t, x.Close())
}

func TestOpen_ReopensExistingDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	x1, err := Open(path)
	require.NoError(t, err)
	_, err = x1.SaveSnapshot(testSnapshot("pass-1"))
	require.NoError(t, err)
	require.NoError(t, x1.Close())

	x2, err := Open(path)
	require.NoError(t, err)
	defer x2.Close()

	p, err := x2.LastPass()
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "pass-1", p.ID)
}

// --- LastPass ---

func TestLastPass_NilWhenEmpty(t *testing.T) {
	x := testIndex(t)

	p, err := x.LastPass()
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSaveSnapshot_RecordsPass(t *testing.T) {
	x := testIndex(t)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	x.now = func() time.Time { return fixed }

	pass, err := x.SaveSnapshot(testSnapshot("pass-1"))
	require.NoError(t, err)

	assert.Equal(t, "pass-1", pass.ID)
	assert.Equal(t, content.ModeEager, pass.Mode)
	assert.Equal(t, fixed, pass.IndexedAt)
	assert.Equal(t, 2, pass.Posts)
	assert.Equal(t, 1, pass.Tutorials)
	assert.Equal(t, 1, pass.Skipped)

	stored, err := x.LastPass()
	require.NoError(t, err)
	assert.Equal(t, pass.ID, stored.ID)
	assert.True(t, pass.DiscoveredAt.Equal(stored.DiscoveredAt))
}

// --- Documents ---

func TestDocuments_EmptyIndex(t *testing.T) {
	x := testIndex(t)

	docs, err := x.Documents(content.KindPost)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocuments_PreservesOrder(t *testing.T) {
	x := testIndex(t)
	_, err := x.SaveSnapshot(testSnapshot("pass-1"))
	require.NoError(t, err)

	posts, err := x.Documents(content.KindPost)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "newest", posts[0].Slug)
	assert.Equal(t, "older", posts[1].Slug)
	assert.Equal(t, []string{"vat"}, posts[1].Tags)

	tutorials, err := x.Documents(content.KindTutorial)
	require.NoError(t, err)
	require.Len(t, tutorials, 1)
	assert.Equal(t, "banking", tutorials[0].Category)
}

func TestSaveSnapshot_ReplacesPreviousPass(t *testing.T) {
	x := testIndex(t)
	_, err := x.SaveSnapshot(testSnapshot("pass-1"))
	require.NoError(t, err)

	smaller := &content.Snapshot{
		PassID: "pass-2",
		Mode:   content.ModeLazy,
		Posts:  []content.Document{{Type: content.KindPost, Slug: "only", Name: "only"}},
	}
	_, err = x.SaveSnapshot(smaller)
	require.NoError(t, err)

	posts, err := x.Documents(content.KindPost)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "only", posts[0].Slug)

	tutorials, err := x.Documents(content.KindTutorial)
	require.NoError(t, err)
	assert.Empty(t, tutorials)

	p, err := x.LastPass()
	require.NoError(t, err)
	assert.Equal(t, "pass-2", p.ID)
	assert.Equal(t, content.ModeLazy, p.Mode)
}
