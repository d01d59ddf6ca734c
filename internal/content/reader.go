package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	cerrors "github.com/formationhub/contentd/internal/errors"
)

//go:generate mockgen -destination=reader_mock_test.go -package=content . FileReader

// FileReader reads one document by its slash-separated path below the
// content root.
type FileReader interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// FSReader reads documents from an fs.FS.
type FSReader struct {
	FS fs.FS
}

// ReadFile implements FileReader.
func (r FSReader) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(r.FS, name)
}

// readWithTimeout bounds a single read. A read that outlives timeout is
// abandoned: its goroutine finishes on its own and the result is dropped.
func readWithTimeout(ctx context.Context, r FileReader, name string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = defaultReadTimeout
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}

	ch := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- result{err: fmt.Errorf("reading %s: %v", name, rec)}
			}
		}()
		data, err := r.ReadFile(rctx, name)
		ch <- result{data: data, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s", cerrors.ErrReadTimeout, name)
		}
		return res.data, res.err
	case <-rctx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %s: %s", cerrors.ErrReadTimeout, timeout, name)
	}
}
