// Package reader parses individual dag-pb/UnixFs blocks into file content
// and walks a whole file linearly, enforcing the cross-block invariants that
// make a UnixFS file DAG well-formed.
package reader

import (
	"context"
	"fmt"
	"io"

	"github.com/ipfs/go-cid"

	"github.com/ipfs/go-unixfs-filecore/data/pb"
	"github.com/ipfs/go-unixfs-filecore/data/pbnode"
	"github.com/ipfs/go-unixfs-filecore/file/ferrors"
)

// BlockGetter fetches a raw, still-encoded block by CID. It is the only
// collaborator this package needs from a blockstore/exchange implementation.
type BlockGetter interface {
	GetBlock(ctx context.Context, c cid.Cid) ([]byte, error)
}

// LinkEntry is a single child of an interior node, with its byte range
// relative to the start of the node that holds it.
type LinkEntry struct {
	Cid   cid.Cid
	Name  string
	Start uint64
	End   uint64 // exclusive
}

func (l LinkEntry) Size() uint64 { return l.End - l.Start }

// RebaseLinks shifts entries fresh off ParseBlock, which are always relative
// to the start of the node just parsed, by base: the absolute file offset at
// which that node's own content begins. Root-level entries need no shift
// (base is always 0 there); every other descent must rebase before pushing
// the entries onto a traversal stack, or continuity checks against already
// consumed bytes compare absolute and node-relative offsets.
func RebaseLinks(entries []LinkEntry, base uint64) []LinkEntry {
	if base == 0 {
		return entries
	}
	out := make([]LinkEntry, len(entries))
	for i, e := range entries {
		out[i] = LinkEntry{Cid: e.Cid, Name: e.Name, Start: e.Start + base, End: e.End + base}
	}
	return out
}

// FileContent is either leaf bytes or a list of children to recurse into;
// exactly one of Bytes/Links is non-nil.
type FileContent struct {
	Bytes []byte
	Links []LinkEntry
}

// FileMetadata carries the mode/mtime a root block may declare. Zero value
// means absent.
type FileMetadata struct {
	Mode  *uint32
	Mtime *pb.UnixTime
}

// Block is a single parsed dag-pb node holding a UnixFs File or Raw payload.
type Block struct {
	Filesize uint64
	Content  FileContent
	Metadata FileMetadata
}

// ParseBlock decodes raw block bytes and checks the invariants that can be
// verified without looking at any other block: link/blocksize count parity
// (V1), non-root metadata (V4), non-File/Raw type rejection, and the
// interior-node filesize/blocksizes-sum agreement.
//
// isRoot must be true only for the block the caller is treating as the file
// root; every other call (descending into children) must pass false.
func ParseBlock(raw []byte, isRoot bool) (*Block, error) {
	node, err := pbnode.Unmarshal(raw)
	if err != nil {
		return nil, ferrors.WrapRead(fmt.Errorf("dag-pb: %w", err))
	}

	payload, err := pb.Unmarshal(node.Data)
	if err != nil {
		return nil, ferrors.WrapRead(fmt.Errorf("unixfs: %w", err))
	}

	switch payload.Type {
	case pb.TypeFile, pb.TypeRaw:
	default:
		return nil, ferrors.UnexpectedType(int32(payload.Type))
	}

	if payload.HashType != nil || payload.Fanout != nil {
		return nil, ferrors.WrapFile(ferrors.NewUnexpectedProperties(payload.HashType, payload.Fanout))
	}

	if !isRoot && (payload.Mode != nil || payload.Mtime != nil) {
		return nil, ferrors.WrapFile(ferrors.NewNonRootMetadata("mode/mtime set on non-root block"))
	}

	if len(node.Links) != len(payload.Blocksizes) {
		return nil, ferrors.WrapFile(ferrors.New(ferrors.LinksAndBlocksizesMismatch))
	}

	block := &Block{}
	if len(node.Links) == 0 {
		data := payload.Data
		if len(data) == 0 && payload.Filesize != nil && *payload.Filesize > 0 {
			return nil, ferrors.WrapFile(ferrors.New(ferrors.NoLinksNoContent))
		}
		block.Filesize = uint64(len(data))
		block.Content = FileContent{Bytes: data}
	} else {
		if payload.Filesize == nil {
			return nil, ferrors.WrapFile(ferrors.New(ferrors.IntermediateNodeWithoutFileSize))
		}
		entries := make([]LinkEntry, 0, len(node.Links))
		var offset uint64
		for i, link := range node.Links {
			childCid, err := pbnode.LinkCid(link.Hash)
			if err != nil {
				return nil, ferrors.InvalidLinkCid(i, link.Hash, link.Name, err)
			}
			bs := payload.Blocksizes[i]
			entries = append(entries, LinkEntry{Cid: childCid, Name: link.Name, Start: offset, End: offset + bs})
			offset += bs
		}
		if offset != *payload.Filesize {
			return nil, ferrors.WrapFile(ferrors.New(ferrors.TreeExpandsOnLinks))
		}
		block.Filesize = *payload.Filesize
		block.Content = FileContent{Links: entries}
	}

	if isRoot {
		block.Metadata = FileMetadata{Mode: payload.Mode, Mtime: payload.Mtime}
	}

	return block, nil
}

// FileReader presents the whole file, depth-first and left-to-right, as a
// sequential io.Reader, fetching blocks lazily and enforcing the coverage
// invariants that span multiple blocks: every leaf's range must continue
// exactly where the previous leaf's ended (V5), and a child's declared
// filesize must match the byte range its parent reserved for it (V6).
type FileReader struct {
	ctx    context.Context
	getter BlockGetter

	filesize uint64
	metadata FileMetadata

	stack []pendingFrame

	leaf    []byte
	leafOff int

	expectNext uint64
	finished   bool
}

type pendingFrame struct {
	links []LinkEntry
	idx   int
}

// NewFileReader fetches the root block and prepares a FileReader positioned
// at offset 0.
func NewFileReader(ctx context.Context, getter BlockGetter, root cid.Cid) (*FileReader, error) {
	raw, err := getter.GetBlock(ctx, root)
	if err != nil {
		return nil, ferrors.WrapRead(err)
	}
	block, err := ParseBlock(raw, true)
	if err != nil {
		return nil, err
	}

	fr := &FileReader{
		ctx:      ctx,
		getter:   getter,
		filesize: block.Filesize,
		metadata: block.Metadata,
	}
	if block.Content.Links != nil {
		fr.stack = append(fr.stack, pendingFrame{links: block.Content.Links})
	} else {
		fr.leaf = block.Content.Bytes
	}
	return fr, nil
}

// Filesize returns the root's declared total size.
func (fr *FileReader) Filesize() uint64 { return fr.filesize }

// Metadata returns the root's mode/mtime, if any (C7).
func (fr *FileReader) Metadata() FileMetadata { return fr.metadata }

// Read implements io.Reader, descending into child blocks as needed.
func (fr *FileReader) Read(p []byte) (int, error) {
	for {
		if fr.leafOff < len(fr.leaf) {
			n := copy(p, fr.leaf[fr.leafOff:])
			fr.leafOff += n
			return n, nil
		}

		if fr.finished {
			return 0, io.EOF
		}

		if len(fr.stack) == 0 {
			fr.finished = true
			return 0, io.EOF
		}

		top := &fr.stack[len(fr.stack)-1]
		if top.idx >= len(top.links) {
			fr.stack = fr.stack[:len(fr.stack)-1]
			continue
		}
		link := top.links[top.idx]
		top.idx++

		raw, err := fr.getter.GetBlock(fr.ctx, link.Cid)
		if err != nil {
			return 0, ferrors.WrapRead(err)
		}
		block, err := ParseBlock(raw, false)
		if err != nil {
			return 0, err
		}
		if block.Filesize != link.Size() {
			return 0, ferrors.WrapFile(ferrors.New(ferrors.TreeExpandsOnLinks))
		}

		if block.Content.Links != nil {
			fr.stack = append(fr.stack, pendingFrame{links: RebaseLinks(block.Content.Links, link.Start)})
			continue
		}

		if err := fr.checkLeafRange(link); err != nil {
			return 0, err
		}
		fr.leaf = block.Content.Bytes
		fr.leafOff = 0
	}
}

func (fr *FileReader) checkLeafRange(link LinkEntry) error {
	switch {
	case link.Start < fr.expectNext && link.End > fr.expectNext:
		return ferrors.WrapFile(ferrors.New(ferrors.TreeOverlapsBetweenLinks))
	case link.Start < fr.expectNext:
		return ferrors.WrapFile(ferrors.New(ferrors.EarlierLink))
	case link.Start > fr.expectNext:
		return ferrors.WrapFile(ferrors.New(ferrors.TreeJumpsBetweenLinks))
	}
	fr.expectNext = link.End
	return nil
}
