// Package state persists the content index written by a discovery pass.
// The index is a bbolt database read by external sitemap and feed
// generators, so it holds document records only, never bodies.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/formationhub/contentd/internal/content"
)

const (
	// indexDirPerm is the permission mode for the index directory.
	indexDirPerm = fs.FileMode(0o755)

	// indexFilePerm is the permission mode for the index database file.
	indexFilePerm = fs.FileMode(0o644)

	// indexOpenTimeout is the maximum time to wait for the bolt database lock.
	indexOpenTimeout = 5 * time.Second
)

var (
	metaBucket      = []byte("meta")
	postsBucket     = []byte("posts")
	tutorialsBucket = []byte("tutorials")
	passKey         = []byte("pass")
)

// Pass describes the discovery pass that produced the stored index.
type Pass struct {
	ID           string       `json:"id"`
	Mode         content.Mode `json:"mode"`
	DiscoveredAt time.Time    `json:"discoveredAt"`
	IndexedAt    time.Time    `json:"indexedAt"`
	Posts        int          `json:"posts"`
	Tutorials    int          `json:"tutorials"`
	Skipped      int          `json:"skipped"`
	Collisions   int          `json:"collisions"`
}

// Index wraps a bbolt database holding one content index.
type Index struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens the index database at path, creating it and its buckets if
// they do not exist.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), indexDirPerm); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := bolt.Open(path, indexFilePerm, &bolt.Options{Timeout: indexOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening index db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{metaBucket, postsBucket, tutorialsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing index db: %w", err)
	}

	return &Index{db: db, now: time.Now}, nil
}

// Close closes the database.
func (x *Index) Close() error {
	return x.db.Close()
}

func kindBucket(kind content.Kind) []byte {
	if kind == content.KindTutorial {
		return tutorialsBucket
	}

	return postsBucket
}

// SaveSnapshot replaces the stored index with the documents of snap in a
// single transaction. Readers never observe a mix of two passes.
func (x *Index) SaveSnapshot(snap *content.Snapshot) (Pass, error) {
	pass := Pass{
		ID:           snap.PassID,
		Mode:         snap.Mode,
		DiscoveredAt: snap.DiscoveredAt,
		IndexedAt:    x.now().UTC(),
		Posts:        len(snap.Posts),
		Tutorials:    len(snap.Tutorials),
		Skipped:      len(snap.Skipped),
		Collisions:   len(snap.Collisions),
	}

	err := x.db.Update(func(tx *bolt.Tx) error {
		for _, kind := range []content.Kind{content.KindPost, content.KindTutorial} {
			name := kindBucket(kind)
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}

			b, err := tx.CreateBucket(name)
			if err != nil {
				return err
			}

			if err := putDocuments(b, snap.Documents(kind)); err != nil {
				return err
			}
		}

		data, err := json.Marshal(pass)
		if err != nil {
			return err
		}

		return tx.Bucket(metaBucket).Put(passKey, data)
	})
	if err != nil {
		return Pass{}, fmt.Errorf("saving snapshot %s: %w", snap.PassID, err)
	}

	return pass, nil
}

// putDocuments stores docs keyed by their position so listing order
// survives the round trip. Keys are zero-padded to sort lexically.
func putDocuments(b *bolt.Bucket, docs []content.Document) error {
	for i, d := range docs {
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}

		if err := b.Put([]byte(fmt.Sprintf("%08d", i)), data); err != nil {
			return err
		}
	}

	return nil
}

// LastPass returns the metadata of the stored pass, or nil when the index
// is empty.
func (x *Index) LastPass() (*Pass, error) {
	var p *Pass

	err := x.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metaBucket).Get(passKey)
		if v == nil {
			return nil
		}

		p = &Pass{}

		return json.Unmarshal(v, p)
	})

	return p, err
}

// Documents returns the stored documents of kind in listing order.
func (x *Index) Documents(kind content.Kind) ([]content.Document, error) {
	docs := []content.Document{}

	err := x.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(kindBucket(kind))
		if b == nil {
			return nil
		}

		return b.ForEach(func(_, v []byte) error {
			var d content.Document
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}

			docs = append(docs, d)

			return nil
		})
	})

	return docs, err
}
