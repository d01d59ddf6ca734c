package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	cerrors "github.com/formationhub/contentd/internal/errors"
	"github.com/formationhub/contentd/internal/frontmatter"
	"github.com/formationhub/contentd/internal/logging"
	"github.com/formationhub/contentd/internal/slug"
)

// Mode selects how a pass loads document content.
type Mode string

const (
	// ModeEager reads every document sequentially and keeps the bodies.
	ModeEager Mode = "eager"
	// ModeLazy reads documents concurrently for their metadata and
	// re-reads bodies on demand.
	ModeLazy Mode = "lazy"
)

const (
	defaultConcurrency = 8
	defaultReadTimeout = 5 * time.Second
)

// Options configures a Discoverer.
type Options struct {
	// PostsDir and TutorialsDir are slash-separated roots inside the FS.
	PostsDir     string
	TutorialsDir string

	DefaultCategory string
	SiteAuthor      string
	DefaultTier     string

	Mode        Mode
	Concurrency int
	ReadTimeout time.Duration

	// StrictSlugs fails the pass on the first slug collision instead of
	// keeping the last-discovered document.
	StrictSlugs   bool
	IncludeDrafts bool

	// KnownCategory, when set, is consulted for every tutorial category;
	// unknown categories are logged.
	KnownCategory func(string) bool

	// Reader overrides how documents are read. Defaults to FSReader.
	Reader FileReader
	Logger *slog.Logger
}

// Discoverer enumerates the content trees of one FS.
type Discoverer struct {
	fsys   fs.FS
	reader FileReader
	opts   Options
	logger *slog.Logger
}

// NewDiscoverer returns a Discoverer over fsys.
func NewDiscoverer(fsys fs.FS, opts Options) *Discoverer {
	if opts.Mode == "" {
		opts.Mode = ModeEager
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.DefaultCategory == "" {
		opts.DefaultCategory = "general"
	}
	if opts.DefaultTier == "" {
		opts.DefaultTier = "free"
	}
	opts.PostsDir = cleanRoot(opts.PostsDir)
	opts.TutorialsDir = cleanRoot(opts.TutorialsDir)

	reader := opts.Reader
	if reader == nil {
		reader = FSReader{FS: fsys}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Discoverer{
		fsys:   fsys,
		reader: reader,
		opts:   opts,
		logger: logger,
	}
}

func cleanRoot(dir string) string {
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" {
		return "."
	}
	return dir
}

// loaded is the outcome of reading one located file.
type loaded struct {
	doc  Document
	body string
	err  error
}

// Discover runs one full pass over both trees. Failures of individual
// documents are logged and reported in Snapshot.Skipped; only a missing
// content root, a strict-mode collision or cancellation fail the pass.
func (d *Discoverer) Discover(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	passID := uuid.NewString()
	logger := d.logger.With(slog.String("pass_id", passID), slog.String("mode", string(d.opts.Mode)))

	snap := &Snapshot{
		PassID:       passID,
		Mode:         d.opts.Mode,
		DiscoveredAt: start.UTC(),
		reader:       d.reader,
		timeout:      d.opts.ReadTimeout,
	}

	postLocs, err := d.enumerate(KindPost, d.opts.PostsDir, snap, logger)
	if err != nil {
		return nil, err
	}

	tutorialLocs, err := d.enumerate(KindTutorial, d.opts.TutorialsDir, snap, logger)
	if err != nil {
		return nil, err
	}

	postResults, err := d.load(ctx, postLocs)
	if err != nil {
		return nil, err
	}

	tutorialResults, err := d.load(ctx, tutorialLocs)
	if err != nil {
		return nil, err
	}

	if d.opts.Mode == ModeEager {
		snap.bodies = make(map[string]string, len(postResults)+len(tutorialResults))
	}

	snap.Posts, err = d.collect(postResults, snap, logger)
	if err != nil {
		return nil, err
	}

	snap.Tutorials, err = d.collect(tutorialResults, snap, logger)
	if err != nil {
		return nil, err
	}

	if d.opts.KnownCategory != nil {
		for _, c := range snap.Categories() {
			if !d.opts.KnownCategory(c) {
				logger.Warn("tutorial category missing from navigation", slog.String("category", c))
			}
		}
	}

	logger.Info("discovery finished",
		slog.Int("posts", len(snap.Posts)),
		slog.Int("tutorials", len(snap.Tutorials)),
		slog.Int("skipped", len(snap.Skipped)),
		slog.Int("collisions", len(snap.Collisions)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return snap, nil
}

// enumerate walks one type root in lexical order. Entry-level walk errors
// are skipped; an inaccessible root is fatal.
func (d *Discoverer) enumerate(kind Kind, root string, snap *Snapshot, logger *slog.Logger) ([]location, error) {
	info, err := fs.Stat(d.fsys, root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", cerrors.ErrContentRootNotFound, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", cerrors.ErrContentRootNotFound, root)
	}

	var locs []location

	err = fs.WalkDir(d.fsys, root, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			logger.Warn("skipping unreadable path", slog.String("path", p), slog.String("error", walkErr.Error()))
			snap.Skipped = append(snap.Skipped, Skip{SourceRef: p, Reason: walkErr.Error()})
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		name := entry.Name()
		if p != root && strings.HasPrefix(name, ".") {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if entry.IsDir() || !slug.HasDocumentExt(name) {
			return nil
		}

		fsRoot := root
		if fsRoot == "." {
			fsRoot = ""
		}

		loc, ok := locate(kind, fsRoot, p, d.opts.DefaultCategory)
		if !ok {
			return nil
		}

		locs = append(locs, loc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking %s: %v", cerrors.ErrContentRootNotFound, root, err)
	}

	return locs, nil
}

// load reads and parses every location. Results keep discovery order
// regardless of the order in which reads complete.
func (d *Discoverer) load(ctx context.Context, locs []location) ([]loaded, error) {
	results := make([]loaded, len(locs))

	if d.opts.Mode == ModeEager {
		for i, loc := range locs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = d.loadOne(ctx, loc)
		}
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)

	for i, loc := range locs {
		g.Go(func() error {
			results[i] = d.loadOne(ctx, loc)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

func (d *Discoverer) loadOne(ctx context.Context, loc location) (res loaded) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Debug("document processing panicked", slog.String("source", loc.ref), slog.String("stack", string(debug.Stack())))
			res = loaded{doc: Document{SourceRef: loc.ref}, err: fmt.Errorf("processing %s: %v", loc.ref, r)}
		}
	}()

	data, err := readWithTimeout(ctx, d.reader, loc.ref, d.opts.ReadTimeout)
	if err != nil {
		return loaded{doc: Document{SourceRef: loc.ref}, err: err}
	}

	fm, body := frontmatter.Split(string(data))

	doc := build(loc, fm, defaults{
		author:   d.opts.SiteAuthor,
		category: d.opts.DefaultCategory,
		tier:     d.opts.DefaultTier,
	})

	return loaded{doc: doc, body: body}
}

// collect drops failed and draft documents, resolves collisions and sorts
// the remainder newest first.
func (d *Discoverer) collect(results []loaded, snap *Snapshot, logger *slog.Logger) ([]Document, error) {
	docs := make([]Document, 0, len(results))
	bodies := make([]string, 0, len(results))
	byKey := make(map[string]int, len(results))
	dropped := make(map[int]bool)

	for _, res := range results {
		if res.err != nil {
			if errors.Is(res.err, context.Canceled) {
				continue
			}
			ref := res.doc.SourceRef
			logger.Warn("skipping unreadable document", slog.String("source", ref), slog.String("error", res.err.Error()))
			snap.Skipped = append(snap.Skipped, Skip{SourceRef: ref, Reason: res.err.Error()})
			continue
		}

		if res.doc.Draft && !d.opts.IncludeDrafts {
			logger.Debug("skipping draft", slog.String("source", res.doc.SourceRef))
			snap.Drafts++
			continue
		}

		key := res.doc.Key()
		if prev, seen := byKey[key]; seen {
			c := Collision{Key: key, Kept: res.doc.SourceRef, Dropped: docs[prev].SourceRef}
			if d.opts.StrictSlugs {
				return nil, fmt.Errorf("%w: %s and %s both map to %s", cerrors.ErrDuplicateSlug, c.Dropped, c.Kept, key)
			}
			logger.Warn("slug collision, keeping last discovered",
				slog.String("key", key),
				slog.String("kept", c.Kept),
				slog.String("dropped", c.Dropped),
			)
			snap.Collisions = append(snap.Collisions, c)
			dropped[prev] = true
		}

		byKey[key] = len(docs)
		docs = append(docs, res.doc)
		bodies = append(bodies, res.body)
	}

	out := make([]Document, 0, len(docs)-len(dropped))
	for i, doc := range docs {
		if dropped[i] {
			continue
		}
		out = append(out, doc)
		if snap.bodies != nil {
			snap.bodies[doc.SourceRef] = bodies[i]
		}
	}

	SortByDate(out)
	return out, nil
}

// SortByDate orders documents newest first. Documents without a parseable
// date sort last; ties keep their existing order.
func SortByDate(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Published().After(docs[j].Published())
	})
}
