package reader_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipfs/go-unixfs-filecore/blockstore/memstore"
	"github.com/ipfs/go-unixfs-filecore/data/pb"
	"github.com/ipfs/go-unixfs-filecore/data/pbnode"
	"github.com/ipfs/go-unixfs-filecore/file/ferrors"
	"github.com/ipfs/go-unixfs-filecore/file/reader"
)

func TestEmptyFileBlockParses(t *testing.T) {
	store := memstore.New()
	zero := uint64(0)
	node := &pbnode.Node{Data: pb.Marshal(&pb.UnixFS{Type: pb.TypeFile, Filesize: &zero})}
	raw := pbnode.Marshal(node)
	c, err := pbnode.HashV0(raw)
	require.NoError(t, err)
	_, err = store.PutBlock(context.Background(), c, raw)
	require.NoError(t, err)

	fr, err := reader.NewFileReader(context.Background(), store, c)
	require.NoError(t, err)
	require.Equal(t, uint64(0), fr.Filesize())
	got, err := io.ReadAll(fr)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestLinksAndBlocksizesMismatch(t *testing.T) {
	store := memstore.New()
	leafData := []byte("x")
	leafSize := uint64(1)
	leafNode := &pbnode.Node{Data: pb.Marshal(&pb.UnixFS{Type: pb.TypeFile, Data: leafData, Filesize: &leafSize})}
	leafRaw := pbnode.Marshal(leafNode)
	leafCid, err := pbnode.HashV0(leafRaw)
	require.NoError(t, err)
	_, err = store.PutBlock(context.Background(), leafCid, leafRaw)
	require.NoError(t, err)

	total := uint64(1)
	root := &pbnode.Node{
		Links: []pbnode.Link{
			{Hash: leafCid.Bytes(), Tsize: uint64(len(leafRaw))},
			{Hash: leafCid.Bytes(), Tsize: uint64(len(leafRaw))},
		},
		Data: pb.Marshal(&pb.UnixFS{Type: pb.TypeFile, Filesize: &total, Blocksizes: []uint64{1}}),
	}
	rootRaw := pbnode.Marshal(root)
	rootCid, err := pbnode.HashV0(rootRaw)
	require.NoError(t, err)
	_, err = store.PutBlock(context.Background(), rootCid, rootRaw)
	require.NoError(t, err)

	_, err = reader.NewFileReader(context.Background(), store, rootCid)
	require.Error(t, err)

	var rf *ferrors.ReadFailed
	require.True(t, errors.As(err, &rf))
	require.NotNil(t, rf.File)
	require.Equal(t, ferrors.LinksAndBlocksizesMismatch, rf.File.Kind)
}

func TestNonRootMetadataRejected(t *testing.T) {
	store := memstore.New()
	mode := uint32(0o644)
	size := uint64(1)
	node := &pbnode.Node{Data: pb.Marshal(&pb.UnixFS{Type: pb.TypeFile, Data: []byte("x"), Filesize: &size, Mode: &mode})}
	raw := pbnode.Marshal(node)
	c, err := pbnode.HashV0(raw)
	require.NoError(t, err)
	_, err = store.PutBlock(context.Background(), c, raw)
	require.NoError(t, err)

	_, err = reader.ParseBlock(raw, false)
	require.Error(t, err)
	var rf *ferrors.ReadFailed
	require.True(t, errors.As(err, &rf))
	require.Equal(t, ferrors.NonRootDefinesMetadata, rf.File.Kind)

	// the same bytes are fine when read as the root.
	_, err = reader.ParseBlock(raw, true)
	require.NoError(t, err)
}

func TestUnexpectedTypeRejected(t *testing.T) {
	node := &pbnode.Node{Data: pb.Marshal(&pb.UnixFS{Type: pb.TypeDirectory})}
	raw := pbnode.Marshal(node)

	_, err := reader.ParseBlock(raw, true)
	require.Error(t, err)
	var rf *ferrors.ReadFailed
	require.True(t, errors.As(err, &rf))
	require.Equal(t, int32(pb.TypeDirectory), rf.UnexpectedType)
}
