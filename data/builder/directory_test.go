package builder_test

import (
	"context"
	"testing"

	"github.com/ipfs/go-test/random"
	"github.com/stretchr/testify/require"

	"github.com/ipfs/go-unixfs-filecore/blockstore/memstore"
	"github.com/ipfs/go-unixfs-filecore/data/builder"
	"github.com/ipfs/go-unixfs-filecore/file/adder"
	"github.com/ipfs/go-unixfs-filecore/testutil"
)

func TestBuildDirectoryRoundtrip(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	ls := builder.LinkSystemFor(ctx, store)

	a := adder.New(ctx, store, adder.WithChunkSize(16))
	require.NoError(t, a.Push([]byte("hello from file one")))
	fileOne, err := a.Finish()
	require.NoError(t, err)

	b := adder.New(ctx, store, adder.WithChunkSize(16))
	require.NoError(t, b.Push([]byte("and this is file two")))
	fileTwo, err := b.Finish()
	require.NoError(t, err)

	root, err := builder.BuildDirectory(ls, []builder.DirEntry{
		{Name: "one.txt", Cid: fileOne, Size: 19},
		{Name: "two.txt", Cid: fileTwo, Size: 20},
	})
	require.NoError(t, err)

	entry := testutil.ToDirEntry(t, store, root)
	require.Len(t, entry.Children, 2)
	names := map[string]bool{}
	for _, c := range entry.Children {
		names[c.Path] = true
	}
	require.True(t, names["/one.txt"])
	require.True(t, names["/two.txt"])
}

func TestGenerateAndCompareDirectory(t *testing.T) {
	store := memstore.New()
	rnd := random.NewSeededRand(0xdeadbeef)

	original := testutil.GenerateDirectory(t, store, rnd, 64<<10)
	roundtripped := testutil.ToDirEntry(t, store, original.Root)
	roundtripped.Path = original.Path

	testutil.CompareDirEntries(t, original, roundtripped)
}
