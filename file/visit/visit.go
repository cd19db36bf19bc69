// Package visit implements range-filtered, on-demand traversal of a UnixFS
// file: given a target byte range, it fetches and descends only the blocks
// that overlap it, skipping whole subtrees the range doesn't touch.
package visit

import (
	"context"

	"github.com/ipfs/go-cid"

	"github.com/ipfs/go-unixfs-filecore/file/ferrors"
	"github.com/ipfs/go-unixfs-filecore/file/reader"
)

// Range is a half-open byte range [Start, End).
type Range struct {
	Start, End uint64
}

// partiallyMatch reports whether two half-open ranges [start, end) share at
// least one byte. Ranges that merely touch at an endpoint (e.g. [0,2) and
// [2,5)) do not overlap: there is no byte common to both.
func partiallyMatch(block, target Range) bool {
	lo := block.Start
	if target.Start > lo {
		lo = target.Start
	}
	hi := block.End
	if target.End < hi {
		hi = target.End
	}
	return lo < hi
}

// overlappingSlice returns the portion of data (covering block, in absolute
// coordinates) that falls within target, translated to data's local indices.
func overlappingSlice(data []byte, block, target Range) []byte {
	lo := block.Start
	if target.Start > lo {
		lo = target.Start
	}
	hi := block.End
	if target.End < hi {
		hi = target.End
	}
	if hi <= lo || lo < block.Start || hi > block.End {
		return nil
	}
	return data[lo-block.Start : hi-block.Start]
}

type frame struct {
	links []reader.LinkEntry
	idx   int
}

// FileVisit is a resumable, range-filtered DFS over a file's blocks still
// pending visitation. A zero value is not usable; construct with
// NewFileVisit.
type FileVisit struct {
	getter reader.BlockGetter
	target Range
	stack  []frame
	done   bool
}

// NewFileVisit fetches the root block and returns any of its content that
// falls within target. If the root is itself a leaf, or the root's whole
// range doesn't overlap target, the returned *FileVisit is nil: there is
// nothing left to walk.
func NewFileVisit(ctx context.Context, getter reader.BlockGetter, root cid.Cid, target Range) ([]byte, *FileVisit, error) {
	raw, err := getter.GetBlock(ctx, root)
	if err != nil {
		return nil, nil, ferrors.WrapRead(err)
	}
	block, err := reader.ParseBlock(raw, true)
	if err != nil {
		return nil, nil, err
	}

	full := Range{0, block.Filesize}
	if !partiallyMatch(full, target) {
		return nil, nil, nil
	}

	if block.Content.Links == nil {
		return overlappingSlice(block.Content.Bytes, full, target), nil, nil
	}

	fv := &FileVisit{getter: getter, target: target}
	fv.pushFrame(block.Content.Links)
	if len(fv.stack) == 0 {
		return nil, nil, nil
	}
	return nil, fv, nil
}

func (fv *FileVisit) pushFrame(links []reader.LinkEntry) {
	filtered := links[:0:0]
	for _, l := range links {
		if partiallyMatch(Range{l.Start, l.End}, fv.target) {
			filtered = append(filtered, l)
		}
	}
	if len(filtered) > 0 {
		fv.stack = append(fv.stack, frame{links: filtered})
	}
}

// Done reports whether the walk has no more pending links.
func (fv *FileVisit) Done() bool {
	return fv == nil || fv.done || len(fv.stack) == 0
}

// PendingLinks returns the CIDs the next ContinueWalk calls will need, top
// frame first, in visitation order. Callers that want to prefetch ahead of
// ContinueWalk (see PrefetchWalk) read this list and warm a cache with it.
func (fv *FileVisit) PendingLinks() []cid.Cid {
	if fv.Done() {
		return nil
	}
	var out []cid.Cid
	for i := len(fv.stack) - 1; i >= 0; i-- {
		f := fv.stack[i]
		for _, l := range f.links[f.idx:] {
			out = append(out, l.Cid)
		}
	}
	return out
}

// ContinueWalk fetches and descends pending links, pushing interior nodes
// onto the stack, until it reaches a leaf, and returns the slice of that
// leaf's content that overlaps the target range. A nil, nil result means
// no pending link was left and Done() now reports true; callers should keep
// calling ContinueWalk until Done() or an error.
func (fv *FileVisit) ContinueWalk(ctx context.Context) ([]byte, error) {
	for len(fv.stack) > 0 {
		top := &fv.stack[len(fv.stack)-1]
		if top.idx >= len(top.links) {
			fv.stack = fv.stack[:len(fv.stack)-1]
			continue
		}
		link := top.links[top.idx]
		top.idx++

		raw, err := fv.getter.GetBlock(ctx, link.Cid)
		if err != nil {
			return nil, ferrors.WrapRead(err)
		}
		block, err := reader.ParseBlock(raw, false)
		if err != nil {
			return nil, err
		}
		lr := Range{link.Start, link.End}
		if block.Filesize != link.Size() {
			return nil, ferrors.WrapFile(ferrors.New(ferrors.TreeExpandsOnLinks))
		}

		if block.Content.Links != nil {
			fv.pushFrame(reader.RebaseLinks(block.Content.Links, link.Start))
			continue
		}

		return overlappingSlice(block.Content.Bytes, lr, fv.target), nil
	}
	fv.done = true
	return nil, nil
}
