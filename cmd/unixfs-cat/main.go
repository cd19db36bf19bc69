// Command unixfs-cat reads a UnixFS dag-pb DAG back out to stdout, either
// in full or restricted to a byte range.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"

	"github.com/ipfs/go-unixfs-filecore/cmd/internal/diskstore"
	"github.com/ipfs/go-unixfs-filecore/file/reader"
	"github.com/ipfs/go-unixfs-filecore/file/visit"
)

var log = logging.Logger("unixfs-cat")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		blockDir   string
		rangeStart int64
		rangeEnd   int64
		prefetch   int
	)

	cmd := &cobra.Command{
		Use:   "unixfs-cat <root-cid>",
		Short: "Read a UnixFS dag-pb DAG to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.SetLogLevel("unixfs-cat", "info")

			root, err := cid.Decode(args[0])
			if err != nil {
				return fmt.Errorf("parsing root CID: %w", err)
			}

			store, err := diskstore.Open(blockDir)
			if err != nil {
				return fmt.Errorf("opening block directory: %w", err)
			}

			ctx := context.Background()

			if rangeEnd <= 0 && rangeStart == 0 {
				return catWhole(ctx, store, root)
			}
			end := uint64(rangeEnd)
			if rangeEnd <= 0 {
				end = math.MaxUint64
			}
			return catRange(ctx, store, root, uint64(rangeStart), end, prefetch)
		},
	}

	cmd.Flags().StringVar(&blockDir, "blocks", "./blocks", "directory blocks were stored in by unixfs-add")
	cmd.Flags().Int64Var(&rangeStart, "range-start", 0, "first byte to read (inclusive)")
	cmd.Flags().Int64Var(&rangeEnd, "range-end", 0, "last byte to read (exclusive); 0 means end of file")
	cmd.Flags().IntVar(&prefetch, "prefetch", 0, "number of pending blocks to fetch concurrently (0 disables)")

	return cmd
}

func catWhole(ctx context.Context, store reader.BlockGetter, root cid.Cid) error {
	fr, err := reader.NewFileReader(ctx, store, root)
	if err != nil {
		return err
	}
	log.Infow("reading file", "root", root, "filesize", fr.Filesize())
	_, err = io.Copy(os.Stdout, fr)
	if err == io.EOF {
		err = nil
	}
	return err
}

func catRange(ctx context.Context, store reader.BlockGetter, root cid.Cid, start, end uint64, prefetch int) error {
	log.Infow("reading range", "root", root, "start", start, "end", end, "prefetch", prefetch)
	visitor := visit.VisitorFunc(func(p []byte) error {
		_, err := os.Stdout.Write(p)
		return err
	})
	return visit.PrefetchWalk(ctx, store, root, visit.Range{Start: start, End: end}, visitor, prefetch)
}
