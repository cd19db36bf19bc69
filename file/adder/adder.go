// Package adder builds a balanced UnixFS file DAG from a byte stream,
// emitting dag-pb blocks as soon as enough input has been seen to know
// their final content, and closing the tree into a single root on Finish.
package adder

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"

	"github.com/ipfs/go-unixfs-filecore/chunker"
	"github.com/ipfs/go-unixfs-filecore/data/pb"
	"github.com/ipfs/go-unixfs-filecore/data/pbnode"
)

// BlockPutter stores an already-encoded block, keyed by its CID.
type BlockPutter interface {
	PutBlock(ctx context.Context, c cid.Cid, raw []byte) (cid.Cid, error)
}

// link is a child reference not yet wrapped into a parent node: cid/name
// for the dag-pb link, size as the link's Tsize (encoded bytes of the
// subtree rooted at cid), and fileSize as the content byte count that
// contributes to the parent's blocksizes/filesize bookkeeping.
type link struct {
	cid      cid.Cid
	name     string
	size     uint64
	fileSize uint64
}

// pendingTail is the most recently completed node that has not yet been
// written to the block store: it might still turn out to be the file's
// root, in which case metadata (mode/mtime) is folded into it right before
// it is finally encoded. A node stops being the pending tail, and is
// written out as a definite non-root, the moment anything else completes
// after it.
type pendingTail struct {
	level     int
	payload   *pb.UnixFS
	nodeLinks []pbnode.Link
	fileSize  uint64
}

type levelBuffer struct {
	links []link
}

// Adder accepts a byte stream via Push and, once Finish is called, returns
// the CID of the file's root block. It holds at most one chunk's worth of
// unsplit bytes plus the not-yet-flushed interior link groups in memory;
// everything else is written to the BlockPutter as soon as it is known not
// to be the root.
type Adder struct {
	ctx    context.Context
	putter BlockPutter

	splitter chunker.Splitter
	fanout   int
	mode     *uint32
	mtime    *pb.UnixTime

	buf     []byte
	levels  []levelBuffer
	pending *pendingTail
	done    bool
}

// New builds an Adder. Blocks are written to putter as soon as they are
// confirmed non-root; metadata given via WithMetadata is attached to
// whichever single block Finish determines is the root.
func New(ctx context.Context, putter BlockPutter, opts ...Option) *Adder {
	o := options{chunkSize: chunker.DefaultBlockSize, fanout: DefaultFanout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fanout <= 0 {
		o.fanout = DefaultFanout
	}
	return &Adder{
		ctx:      ctx,
		putter:   putter,
		splitter: chunker.FixedSize(o.chunkSize),
		fanout:   o.fanout,
		mode:     o.mode,
		mtime:    o.mtime,
	}
}

// SizeHint reports the configured leaf chunk size, useful for callers
// sizing their own read buffers.
func (a *Adder) SizeHint() int { return a.splitter.Size() }

// Push feeds bytes into the adder, splitting them into leaves as the
// configured chunker's boundaries are reached. It must not be called after
// Finish.
func (a *Adder) Push(p []byte) error {
	if a.done {
		return fmt.Errorf("adder: Push called after Finish")
	}
	for len(p) > 0 {
		accepted, ready := a.splitter.Accept(p, len(a.buf))
		a.buf = append(a.buf, p[:accepted]...)
		p = p[accepted:]
		if ready {
			if err := a.flushLeaf(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Finish closes the tree: any buffered partial leaf is flushed, every
// interior level still below its fanout threshold is force-collapsed
// bottom-up, and the single surviving node is written with the adder's
// configured metadata as the file's root.
func (a *Adder) Finish() (cid.Cid, error) {
	if a.done {
		return cid.Undef, fmt.Errorf("adder: Finish called twice")
	}
	a.done = true

	if len(a.buf) > 0 || (a.pending == nil && a.empty()) {
		if err := a.flushLeaf(); err != nil {
			return cid.Undef, err
		}
	}

	// Close the tree bottom-up until only the pending tail is left. While
	// anything besides the tail is still buffered, the tail is not the root
	// by itself: fold it into its home level as a real link, after the older
	// siblings already there (which may collapse that level into a new
	// pending tail). With no tail pending, collapse the lowest non-empty
	// level, whose links cover the most recent content.
	for !a.empty() {
		if a.pending != nil {
			old := a.pending
			a.pending = nil
			c, size, err := a.commit(old, false)
			if err != nil {
				return cid.Undef, err
			}
			if err := a.pushLink(old.level+1, link{cid: c, size: size, fileSize: old.fileSize}); err != nil {
				return cid.Undef, err
			}
			continue
		}
		for level := 0; level < len(a.levels); level++ {
			if len(a.levels[level].links) > 0 {
				if err := a.collapseLevel(level); err != nil {
					return cid.Undef, err
				}
				break
			}
		}
	}

	if a.pending == nil {
		return cid.Undef, fmt.Errorf("adder: no content to finish")
	}
	root := a.pending
	a.pending = nil
	c, _, err := a.commit(root, true)
	return c, err
}

func (a *Adder) empty() bool {
	for _, l := range a.levels {
		if len(l.links) > 0 {
			return false
		}
	}
	return true
}

func (a *Adder) flushLeaf() error {
	data := a.buf
	a.buf = nil
	size := uint64(len(data))
	payload := &pb.UnixFS{Type: pb.TypeFile, Data: data, Filesize: &size}
	return a.complete(0, payload, nil, size)
}

func (a *Adder) collapseLevel(level int) error {
	group := a.levels[level].links
	a.levels[level].links = nil

	blocksizes := make([]uint64, len(group))
	nodeLinks := make([]pbnode.Link, len(group))
	var total uint64
	for i, l := range group {
		blocksizes[i] = l.fileSize
		total += l.fileSize
		nodeLinks[i] = pbnode.Link{Hash: l.cid.Bytes(), Name: l.name, Tsize: l.size}
	}
	payload := &pb.UnixFS{Type: pb.TypeFile, Filesize: &total, Blocksizes: blocksizes}
	return a.complete(level, payload, nodeLinks, total)
}

// complete registers a freshly finished node as the new pending tail,
// first writing out and shelving whatever the previous pending tail was
// (it is now confirmed non-root, since something completed after it).
// Shelving can collapse a full level into a new pending node, which is
// written out and shelved the same way before the new tail is registered.
func (a *Adder) complete(level int, payload *pb.UnixFS, nodeLinks []pbnode.Link, fileSize uint64) error {
	for a.pending != nil {
		old := a.pending
		a.pending = nil
		c, size, err := a.commit(old, false)
		if err != nil {
			return err
		}
		if err := a.pushLink(old.level+1, link{cid: c, size: size, fileSize: old.fileSize}); err != nil {
			return err
		}
	}
	a.pending = &pendingTail{level: level, payload: payload, nodeLinks: nodeLinks, fileSize: fileSize}
	return nil
}

func (a *Adder) pushLink(level int, l link) error {
	for len(a.levels) <= level {
		a.levels = append(a.levels, levelBuffer{})
	}
	a.levels[level].links = append(a.levels[level].links, l)
	if len(a.levels[level].links) >= a.fanout {
		return a.collapseLevel(level)
	}
	return nil
}

// commit encodes, hashes and stores a pending node, optionally folding in
// the adder's configured metadata. It returns the node's CID and its
// Tsize (encoded size of this node plus every descendant's Tsize).
func (a *Adder) commit(p *pendingTail, isRoot bool) (cid.Cid, uint64, error) {
	if isRoot {
		p.payload.Mode = a.mode
		p.payload.Mtime = a.mtime
	}
	payloadBytes := pb.Marshal(p.payload)
	node := &pbnode.Node{Links: p.nodeLinks, Data: payloadBytes}
	raw := pbnode.Marshal(node)

	c, err := pbnode.HashV0(raw)
	if err != nil {
		return cid.Undef, 0, err
	}
	if _, err := a.putter.PutBlock(a.ctx, c, raw); err != nil {
		return cid.Undef, 0, err
	}

	size := uint64(len(raw))
	for _, l := range p.nodeLinks {
		size += l.Tsize
	}
	return c, size, nil
}
