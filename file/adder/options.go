package adder

import "github.com/ipfs/go-unixfs-filecore/data/pb"

// DefaultFanout is the maximum number of children an interior node may hold
// before it is flushed, matching go-unixfs's balanced DAG builder default.
const DefaultFanout = 174

type options struct {
	chunkSize int
	fanout    int
	mode      *uint32
	mtime     *pb.UnixTime
}

// Option configures an Adder at construction time.
type Option func(*options)

// WithChunkSize sets the leaf chunk size in bytes. The zero value falls
// back to chunker.DefaultBlockSize.
func WithChunkSize(n int) Option {
	return func(o *options) { o.chunkSize = n }
}

// WithFanout sets the maximum number of children per interior node. The
// zero value falls back to DefaultFanout.
func WithFanout(n int) Option {
	return func(o *options) { o.fanout = n }
}

// WithMetadata attaches mode and/or mtime to the file's root block (V4: any
// other block is rejected if it carries either).
func WithMetadata(mode *uint32, mtime *pb.UnixTime) Option {
	return func(o *options) {
		o.mode = mode
		o.mtime = mtime
	}
}
