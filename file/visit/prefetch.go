package visit

import (
	"context"
	"sync"

	"github.com/ipfs/go-cid"
	"golang.org/x/sync/errgroup"

	"github.com/ipfs/go-unixfs-filecore/file/reader"
)

// prefetchingGetter wraps a BlockGetter with a small result cache so blocks
// fetched ahead of time by PrefetchWalk are found by the sequential walk
// instead of being fetched twice.
type prefetchingGetter struct {
	reader.BlockGetter

	mu    sync.Mutex
	cache map[cid.Cid][]byte
}

func newPrefetchingGetter(getter reader.BlockGetter) *prefetchingGetter {
	return &prefetchingGetter{BlockGetter: getter, cache: make(map[cid.Cid][]byte)}
}

func (g *prefetchingGetter) GetBlock(ctx context.Context, c cid.Cid) ([]byte, error) {
	g.mu.Lock()
	if raw, ok := g.cache[c]; ok {
		delete(g.cache, c)
		g.mu.Unlock()
		return raw, nil
	}
	g.mu.Unlock()

	raw, err := g.BlockGetter.GetBlock(ctx, c)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (g *prefetchingGetter) warm(ctx context.Context, cids []cid.Cid) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, c := range cids {
		c := c
		g.mu.Lock()
		_, cached := g.cache[c]
		g.mu.Unlock()
		if cached {
			continue
		}
		eg.Go(func() error {
			raw, err := g.BlockGetter.GetBlock(ctx, c)
			if err != nil {
				return err
			}
			g.mu.Lock()
			g.cache[c] = raw
			g.mu.Unlock()
			return nil
		})
	}
	return eg.Wait()
}

// PrefetchWalk is a convenience driver, not part of the core's correctness
// or determinism guarantees: it runs the same walk as Walk, but fetches the
// blocks PendingLinks names for upcoming steps concurrently via an
// errgroup, overlapping network/disk latency with visitor processing.
// depth bounds how many pending links are prefetched ahead at once; a
// non-positive depth disables prefetching and behaves like Walk.
func PrefetchWalk(ctx context.Context, getter reader.BlockGetter, root cid.Cid, target Range, visitor Visitor, depth int) error {
	if depth <= 0 {
		return Walk(ctx, getter, root, target, visitor)
	}

	pg := newPrefetchingGetter(getter)

	data, fv, err := NewFileVisit(ctx, pg, root, target)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		if err := visitor.VisitBytes(data); err != nil {
			return err
		}
	}

	for !fv.Done() {
		pending := fv.PendingLinks()
		if len(pending) > depth {
			pending = pending[:depth]
		}
		if err := pg.warm(ctx, pending); err != nil {
			return err
		}

		chunk, err := fv.ContinueWalk(ctx)
		if err != nil {
			return err
		}
		if len(chunk) > 0 {
			if err := visitor.VisitBytes(chunk); err != nil {
				return err
			}
		}
	}
	return nil
}
