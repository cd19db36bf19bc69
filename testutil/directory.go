// Package testutil provides random content generation and DAG comparison
// helpers shared by the adder/reader/visit test suites.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"github.com/ipfs/go-unixfs-filecore/data/pb"
	"github.com/ipfs/go-unixfs-filecore/data/pbnode"
	"github.com/ipfs/go-unixfs-filecore/file/reader"
)

// DirEntry represents a flattened file or directory entry, where Path is
// relative to the root and Content is the file's full contents (empty for
// directories).
type DirEntry struct {
	Path     string
	Content  []byte
	Root     cid.Cid
	TSize    uint64
	Children []DirEntry
}

// ToDirEntry walks a UnixFS dag-pb tree starting at rootCid and rebuilds a
// DirEntry tree from it, reading every file fully.
func ToDirEntry(t *testing.T, getter reader.BlockGetter, rootCid cid.Cid) DirEntry {
	return toDirEntry(t, getter, rootCid, "")
}

func toDirEntry(t *testing.T, getter reader.BlockGetter, rootCid cid.Cid, path string) DirEntry {
	ctx := context.Background()
	raw, err := getter.GetBlock(ctx, rootCid)
	require.NoError(t, err)
	node, err := pbnode.Unmarshal(raw)
	require.NoError(t, err)
	payload, err := pb.Unmarshal(node.Data)
	require.NoError(t, err)

	if payload.Type == pb.TypeDirectory {
		children := make([]DirEntry, 0, len(node.Links))
		for _, l := range node.Links {
			c, err := pbnode.LinkCid(l.Hash)
			require.NoError(t, err)
			children = append(children, toDirEntry(t, getter, c, path+"/"+l.Name))
		}
		return DirEntry{Path: path, Root: rootCid, Children: children}
	}

	fr, err := reader.NewFileReader(ctx, getter, rootCid)
	require.NoError(t, err)
	content, err := io.ReadAll(fr)
	require.NoError(t, err)
	return DirEntry{Path: path, Content: content, Root: rootCid, TSize: fr.Filesize()}
}

// CompareDirEntries is a recursive, order-independent comparison between
// two DirEntry trees.
func CompareDirEntries(t *testing.T, a, b DirEntry) {
	require.Equal(t, a.Path, b.Path)
	require.Equal(t, a.Root.String(), b.Root.String(), a.Path+" root mismatch")
	hashA := sha256.Sum256(a.Content)
	hashB := sha256.Sum256(b.Content)
	require.Equal(t, hex.EncodeToString(hashA[:]), hex.EncodeToString(hashB[:]), a.Path+" content hash mismatch")
	require.Equal(t, len(a.Children), len(b.Children), fmt.Sprintf("%s child length mismatch %d <> %d", a.Path, len(a.Children), len(b.Children)))
	for i := range a.Children {
		var found bool
		for j := range b.Children {
			if a.Children[i].Path == b.Children[j].Path {
				found = true
				CompareDirEntries(t, a.Children[i], b.Children[j])
			}
		}
		require.True(t, found, fmt.Sprintf("@ path [%s], a's child [%s] not found in b", a.Path, a.Children[i].Path))
	}
}
