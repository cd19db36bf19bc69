package visit_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"github.com/ipfs/go-unixfs-filecore/blockstore/memstore"
	"github.com/ipfs/go-unixfs-filecore/file/adder"
	"github.com/ipfs/go-unixfs-filecore/file/visit"
)

func buildFourLeafTree(t *testing.T) (*memstore.Store, cid.Cid) {
	store := memstore.New()
	a := adder.New(context.Background(), store, adder.WithChunkSize(2))
	require.NoError(t, a.Push([]byte("foobar\n")))
	root, err := a.Finish()
	require.NoError(t, err)
	return store, root
}

func collect(t *testing.T, store *memstore.Store, root cid.Cid, r visit.Range) []byte {
	var buf bytes.Buffer
	err := visit.Walk(context.Background(), store, root, r, visit.VisitorFunc(func(p []byte) error {
		buf.Write(p)
		return nil
	}))
	require.NoError(t, err)
	return buf.Bytes()
}

func TestRangeWithinMiddleOfFourLeafTree(t *testing.T) {
	store, root := buildFourLeafTree(t)
	got := collect(t, store, root, visit.Range{Start: 2, End: 5})
	require.Equal(t, []byte("oba"), got)
}

func TestRangeBeyondEOFReturnsEmpty(t *testing.T) {
	store, root := buildFourLeafTree(t)
	got := collect(t, store, root, visit.Range{Start: 500_000_000, End: 500_000_032})
	require.Empty(t, got)
}

func TestPendingLinksDoesNotAdvanceState(t *testing.T) {
	store, root := buildFourLeafTree(t)
	_, fv, err := visit.NewFileVisit(context.Background(), store, root, visit.Range{Start: 0, End: 7})
	require.NoError(t, err)
	require.NotNil(t, fv)

	first := fv.PendingLinks()
	second := fv.PendingLinks()
	require.Equal(t, first, second)
	require.Equal(t, first, fv.PendingLinks())
}

func TestWholeFileWalk(t *testing.T) {
	store, root := buildFourLeafTree(t)
	got := collect(t, store, root, visit.Range{Start: 0, End: 7})
	require.Equal(t, []byte("foobar\n"), got)
}

func buildMultiLevelTree(t *testing.T, content []byte) (*memstore.Store, cid.Cid) {
	store := memstore.New()
	a := adder.New(context.Background(), store, adder.WithChunkSize(3), adder.WithFanout(2))
	require.NoError(t, a.Push(content))
	root, err := a.Finish()
	require.NoError(t, err)
	return store, root
}

// A low fanout forces several interior levels; the requested range falls
// inside a subtree that is not its parent's first child at any level, which
// requires the walk to track each descent's absolute file offset correctly.
func TestRangeInLaterSubtreeOfMultiLevelTree(t *testing.T) {
	content := []byte("abcdefghijklmnopqrstuvwx")
	store, root := buildMultiLevelTree(t, content)
	got := collect(t, store, root, visit.Range{Start: 15, End: 20})
	require.Equal(t, content[15:20], got)
}
