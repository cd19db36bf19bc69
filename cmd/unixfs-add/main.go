// Command unixfs-add splits a file into a UnixFS dag-pb DAG and stores its
// blocks under a local directory, one file per CID.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"

	"github.com/ipfs/go-unixfs-filecore/cmd/internal/diskstore"
	"github.com/ipfs/go-unixfs-filecore/file/adder"
)

var log = logging.Logger("unixfs-add")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		blockDir  string
		chunkSize int
		fanout    int
		mode      uint32
		setMode   bool
	)

	cmd := &cobra.Command{
		Use:   "unixfs-add <file>",
		Short: "Chunk a file into a UnixFS dag-pb DAG and print its root CID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.SetLogLevel("unixfs-add", "info")

			store, err := diskstore.Open(blockDir)
			if err != nil {
				return fmt.Errorf("opening block directory: %w", err)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening input file: %w", err)
			}
			defer f.Close()

			var opts []adder.Option
			if chunkSize > 0 {
				opts = append(opts, adder.WithChunkSize(chunkSize))
			}
			if fanout > 0 {
				opts = append(opts, adder.WithFanout(fanout))
			}
			if setMode || mode != 0 {
				opts = append(opts, adder.WithMetadata(&mode, nil))
			}

			ctx := context.Background()
			a := adder.New(ctx, store, opts...)

			buf := make([]byte, a.SizeHint())
			for {
				n, rerr := f.Read(buf)
				if n > 0 {
					if pushErr := a.Push(buf[:n]); pushErr != nil {
						return fmt.Errorf("adding content: %w", pushErr)
					}
				}
				if rerr == io.EOF {
					break
				}
				if rerr != nil {
					return fmt.Errorf("reading input file: %w", rerr)
				}
			}

			root, err := a.Finish()
			if err != nil {
				return fmt.Errorf("finishing dag: %w", err)
			}

			log.Infow("added file", "path", args[0], "root", root, "blocks", store.Len())
			fmt.Println(root.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&blockDir, "blocks", "./blocks", "directory to store emitted blocks in")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "leaf chunk size in bytes (default: chunker.DefaultBlockSize)")
	cmd.Flags().IntVar(&fanout, "fanout", 0, "maximum links per interior node (default: adder.DefaultFanout)")
	cmd.Flags().Uint32Var(&mode, "mode", 0, "unix mode bits to attach to the root block")
	cmd.Flags().BoolVar(&setMode, "set-mode", false, "attach --mode to the root block even if it is 0")

	return cmd
}
