// Package diff computes the per-file edit script between two project
// snapshots.
package diff

import (
	"context"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"chronolens/internal/edit"
	"chronolens/internal/model"
)

const defaultWorkers = 4

type options struct {
	workers int
}

// Option configures Project.
type Option func(*options)

// WithWorkers bounds the number of files diffed concurrently.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// SourceFile returns the transaction turning before into after. A nil file
// stands for the empty file.
func SourceFile(before, after *model.SourceFile) *edit.SourceFileTransaction {
	return edit.DiffSourceFile(before, after)
}

// Project returns, for every path whose file differs between before and
// after, the transaction describing the change. A file only present in after
// maps to a transaction adding all of its entities; a file only present in
// before maps to nil. Paths with identical files are omitted.
func Project(ctx context.Context, before, after model.Project, opts ...Option) (map[string]*edit.SourceFileTransaction, error) {
	o := options{workers: defaultWorkers}
	for _, opt := range opts {
		opt(&o)
	}

	paths := make(map[string]struct{}, after.Len())
	for _, p := range before.Paths() {
		paths[p] = struct{}{}
	}
	for _, p := range after.Paths() {
		paths[p] = struct{}{}
	}

	var mu sync.Mutex
	result := make(map[string]*edit.SourceFileTransaction)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, path := range slices.Sorted(maps.Keys(paths)) {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, inBefore := before.Get(path)
			a, inAfter := after.Get(path)

			var tx *edit.SourceFileTransaction
			switch {
			case !inAfter:
				// removed; recorded as nil
			case !inBefore:
				tx = SourceFile(nil, a)
			default:
				if tx = SourceFile(b, a); tx.IsEmpty() {
					return nil
				}
			}

			mu.Lock()
			result[path] = tx
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
