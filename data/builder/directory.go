// Package builder assembles UnixFS directory nodes and whole filesystem
// trees on top of the file/adder package. Unlike the file adder, which
// hand-rolls its dag-pb encoding to guarantee byte-exact, reproducible
// CIDs, directory construction is not subject to any pinned CID fixture,
// so it is built the way the rest of the ecosystem builds dag-pb nodes:
// through github.com/ipld/go-codec-dagpb's schema-typed PBNode/PBLink and
// github.com/ipld/go-ipld-prime's LinkSystem.
package builder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"

	gocid "github.com/ipfs/go-cid"
	dagpb "github.com/ipld/go-codec-dagpb"
	"github.com/ipld/go-ipld-prime"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/multiformats/go-multicodec"
	multihash "github.com/multiformats/go-multihash/core"

	"github.com/ipfs/go-unixfs-filecore/data/pb"
	"github.com/ipfs/go-unixfs-filecore/file/adder"
)

// DefaultLinksPerBlock bounds how many entries a single directory block may
// hold. Directories larger than this are rejected: authoring HAMT-sharded
// directories is a non-goal.
const DefaultLinksPerBlock = adder.DefaultFanout

var directoryLinkProto = cidlink.LinkPrototype{
	Prefix: gocid.Prefix{
		Version:  0,
		Codec:    uint64(multicodec.DagPb),
		MhType:   multihash.SHA2_256,
		MhLength: 32,
	},
}

// LinkSystemFor returns an ipld.LinkSystem whose blocks are written through
// putter, the same collaborator the Adder stores file blocks through.
func LinkSystemFor(ctx context.Context, putter adder.BlockPutter) ipld.LinkSystem {
	ls := cidlink.DefaultLinkSystem()
	ls.StorageWriteOpener = func(ipld.LinkContext) (io.Writer, ipld.BlockWriteCommitter, error) {
		buf := bytes.NewBuffer(nil)
		return buf, func(lnk ipld.Link) error {
			cl, ok := lnk.(cidlink.Link)
			if !ok {
				return fmt.Errorf("builder: unexpected link type %T", lnk)
			}
			_, err := putter.PutBlock(ctx, cl.Cid, buf.Bytes())
			return err
		}, nil
	}
	return ls
}

// DirEntry is one named child of a directory.
type DirEntry struct {
	Name string
	Cid  gocid.Cid
	Size uint64
}

// BuildDirectory encodes a flat UnixFS directory node over entries and
// stores it through ls.
func BuildDirectory(ls ipld.LinkSystem, entries []DirEntry) (gocid.Cid, error) {
	if len(entries) > DefaultLinksPerBlock {
		return gocid.Undef, fmt.Errorf("builder: directory has %d entries, sharded directories are not supported", len(entries))
	}

	sorted := append([]DirEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	payload := pb.Marshal(&pb.UnixFS{Type: pb.TypeDirectory})

	pbb := dagpb.Type.PBNode.NewBuilder()
	pbm, err := pbb.BeginMap(2)
	if err != nil {
		return gocid.Undef, err
	}

	if err := pbm.AssembleKey().AssignString("Links"); err != nil {
		return gocid.Undef, err
	}
	lnkBuilder := dagpb.Type.PBLinks.NewBuilder()
	lnks, err := lnkBuilder.BeginList(int64(len(sorted)))
	if err != nil {
		return gocid.Undef, err
	}
	for _, e := range sorted {
		entryNode, err := buildPBLink(e)
		if err != nil {
			return gocid.Undef, err
		}
		if err := lnks.AssembleValue().AssignNode(entryNode); err != nil {
			return gocid.Undef, err
		}
	}
	if err := lnks.Finish(); err != nil {
		return gocid.Undef, err
	}
	if err := pbm.AssembleValue().AssignNode(lnkBuilder.Build()); err != nil {
		return gocid.Undef, err
	}

	if err := pbm.AssembleKey().AssignString("Data"); err != nil {
		return gocid.Undef, err
	}
	if err := pbm.AssembleValue().AssignBytes(payload); err != nil {
		return gocid.Undef, err
	}
	if err := pbm.Finish(); err != nil {
		return gocid.Undef, err
	}

	node := pbb.Build()
	lnk, err := ls.Store(ipld.LinkContext{}, directoryLinkProto, node)
	if err != nil {
		return gocid.Undef, err
	}
	return lnk.(cidlink.Link).Cid, nil
}

func buildPBLink(e DirEntry) (ipld.Node, error) {
	pblb := dagpb.Type.PBLink.NewBuilder()
	m, err := pblb.BeginMap(3)
	if err != nil {
		return nil, err
	}
	if err := m.AssembleKey().AssignString("Hash"); err != nil {
		return nil, err
	}
	if err := m.AssembleValue().AssignLink(cidlink.Link{Cid: e.Cid}); err != nil {
		return nil, err
	}
	if err := m.AssembleKey().AssignString("Name"); err != nil {
		return nil, err
	}
	if err := m.AssembleValue().AssignString(e.Name); err != nil {
		return nil, err
	}
	if err := m.AssembleKey().AssignString("Tsize"); err != nil {
		return nil, err
	}
	if err := m.AssembleValue().AssignInt(int64(e.Size)); err != nil {
		return nil, err
	}
	if err := m.Finish(); err != nil {
		return nil, err
	}
	return pblb.Build(), nil
}

// BuildRecursive walks a filesystem directory tree, chunking every regular
// file through an Adder and assembling every directory via BuildDirectory.
// Symlinks are followed (os.Stat and os.Open resolve them to their
// targets); no Symlink node is ever emitted, since this module only builds
// and reads File/Raw content.
func BuildRecursive(ctx context.Context, root string, ls ipld.LinkSystem, putter adder.BlockPutter, opts ...adder.Option) (gocid.Cid, uint64, error) {
	info, err := os.Stat(root)
	if err != nil {
		return gocid.Undef, 0, err
	}

	if !info.IsDir() {
		return buildFile(ctx, root, putter, opts...)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return gocid.Undef, 0, err
	}
	dirEntries := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		childCid, childSize, err := BuildRecursive(ctx, path.Join(root, e.Name()), ls, putter, opts...)
		if err != nil {
			return gocid.Undef, 0, err
		}
		dirEntries = append(dirEntries, DirEntry{Name: e.Name(), Cid: childCid, Size: childSize})
	}
	c, err := BuildDirectory(ls, dirEntries)
	return c, 0, err
}

func buildFile(ctx context.Context, path string, putter adder.BlockPutter, opts ...adder.Option) (gocid.Cid, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return gocid.Undef, 0, err
	}
	defer f.Close()

	a := adder.New(ctx, putter, opts...)
	buf := make([]byte, a.SizeHint())
	var size uint64
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if err := a.Push(buf[:n]); err != nil {
				return gocid.Undef, 0, err
			}
			size += uint64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return gocid.Undef, 0, rerr
		}
	}
	c, err := a.Finish()
	return c, size, err
}
