package visit

import (
	"context"

	"github.com/ipfs/go-cid"

	"github.com/ipfs/go-unixfs-filecore/file/reader"
)

// Visitor receives successive slices of a file's content, in file order,
// restricted to the range given to Walk. p is only valid for the duration
// of the call.
type Visitor interface {
	VisitBytes(p []byte) error
}

// VisitorFunc adapts a plain function to a Visitor.
type VisitorFunc func(p []byte) error

func (f VisitorFunc) VisitBytes(p []byte) error { return f(p) }

// Walk drives a FileVisit to completion, in file order, pushing every
// emitted slice to visitor. It is the straight-line, non-prefetching
// counterpart to PrefetchWalk.
func Walk(ctx context.Context, getter reader.BlockGetter, root cid.Cid, target Range, visitor Visitor) error {
	data, fv, err := NewFileVisit(ctx, getter, root, target)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		if err := visitor.VisitBytes(data); err != nil {
			return err
		}
	}
	for !fv.Done() {
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
