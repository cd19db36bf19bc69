package adder_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"github.com/ipfs/go-unixfs-filecore/blockstore/memstore"
	"github.com/ipfs/go-unixfs-filecore/file/adder"
	"github.com/ipfs/go-unixfs-filecore/file/reader"
)

func cidFromString(s string) (cid.Cid, error) {
	return cid.Decode(s)
}

func TestSingleLeafKnownCid(t *testing.T) {
	store := memstore.New()
	a := adder.New(context.Background(), store)
	require.NoError(t, a.Push([]byte("foobar\n")))
	root, err := a.Finish()
	require.NoError(t, err)
	require.Equal(t, "QmRgutAxd8t7oGkSm4wmeuByG6M51wcTso6cubDdQtuEfL", root.String())
}

func TestFourLeafTreeKnownCids(t *testing.T) {
	store := memstore.New()
	a := adder.New(context.Background(), store, adder.WithChunkSize(2))
	require.NoError(t, a.Push([]byte("foobar\n")))
	root, err := a.Finish()
	require.NoError(t, err)
	require.Equal(t, "QmRJHYTNvC3hmd9gJQARxLR1QMEincccBV53bBw524yyq6", root.String())

	expectedLeaves := []string{
		"QmfVyMoStzTvdnUR7Uotzh82gmL427q9z3xW5Y8fUoszi4", // "fo"
		"QmdPyW4CWE3QBkgjWfjM5f7Tjb3HukxVuBXZtkqAGwsMnm", // "ob"
		"QmNhDQpphvMWhdCzP74taRzXDaEfPGq8vWfFRzD7mEgePM", // "ar"
		"Qmc5m94Gu7z62RC8waSKkZUrCCBJPyHbkpmGzEePxy2oXJ", // "\n"
	}
	for _, want := range expectedLeaves {
		c, err := cidFromString(want)
		require.NoError(t, err)
		require.True(t, store.Has(c), "expected leaf %s to have been written", want)
	}
}

func TestPushFinishRoundtrip(t *testing.T) {
	store := memstore.New()
	content := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 20000)

	a := adder.New(context.Background(), store, adder.WithChunkSize(256), adder.WithFanout(4))
	require.NoError(t, a.Push(content))
	root, err := a.Finish()
	require.NoError(t, err)

	fr, err := reader.NewFileReader(context.Background(), store, root)
	require.NoError(t, err)
	got, err := io.ReadAll(fr)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestRecursiveMultiLevelCollapse(t *testing.T) {
	// fanout=2 and a chunk size of 1 byte forces many interior levels: with
	// 40 leaves and a fanout of 2, the balanced tree is 6 levels deep. This
	// exercises the Adder's recursive collapse, not just a single level.
	store := memstore.New()
	content := bytes.Repeat([]byte("x"), 40)

	a := adder.New(context.Background(), store, adder.WithChunkSize(1), adder.WithFanout(2))
	require.NoError(t, a.Push(content))
	root, err := a.Finish()
	require.NoError(t, err)

	fr, err := reader.NewFileReader(context.Background(), store, root)
	require.NoError(t, err)
	require.Equal(t, uint64(len(content)), fr.Filesize())
	got, err := io.ReadAll(fr)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestMultiLevelPreservesByteOrder(t *testing.T) {
	// Distinct bytes (not a repeated pattern) so a subtree read at the wrong
	// file offset shows up as wrong content instead of passing by coincidence.
	store := memstore.New()
	content := []byte("abcdefghijklmnopqrstuvwx")

	a := adder.New(context.Background(), store, adder.WithChunkSize(3), adder.WithFanout(2))
	require.NoError(t, a.Push(content))
	root, err := a.Finish()
	require.NoError(t, err)

	fr, err := reader.NewFileReader(context.Background(), store, root)
	require.NoError(t, err)
	got, err := io.ReadAll(fr)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestEmptyFile(t *testing.T) {
	store := memstore.New()
	a := adder.New(context.Background(), store)
	root, err := a.Finish()
	require.NoError(t, err)

	fr, err := reader.NewFileReader(context.Background(), store, root)
	require.NoError(t, err)
	require.Equal(t, uint64(0), fr.Filesize())
	got, err := io.ReadAll(fr)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestPushAfterFinishErrors(t *testing.T) {
	store := memstore.New()
	a := adder.New(context.Background(), store)
	_, err := a.Finish()
	require.NoError(t, err)
	require.Error(t, a.Push([]byte("too late")))
}
