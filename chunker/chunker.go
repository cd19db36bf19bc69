// Package chunker implements the pure, allocation-free splitting rule used
// by the file adder to decide where leaf block boundaries fall.
//
// The adder feeds bytes to a Splitter as they arrive via Push and asks
// whether a boundary has been reached; this is a push contract rather than
// github.com/ipfs/go-ipfs-chunker's io.Reader-pulling Splitter, since the
// adder never owns a whole io.Reader of its own (Push may be called many
// times before the stream ends). The naming (Splitter, DefaultBlockSize) is
// kept consistent with go-ipfs-chunker's conventions for anyone used to
// that package.
package chunker

// DefaultBlockSize is the chunk size used when none is configured, matching
// go-ipfs-chunker's rabin/fixed default.
const DefaultBlockSize = 262144

// Splitter decides, given buffered bytes so far and a freshly appended
// input, how many of those bytes belong to the current leaf.
type Splitter interface {
	// Accept is given the newly appended input and the number of bytes
	// already buffered for the current leaf. It returns how many bytes of
	// input were accepted into the current leaf, and whether the leaf is
	// now complete (ready to flush).
	Accept(input []byte, buffered int) (accepted int, ready bool)

	// Size reports the target leaf size, used for capacity hints.
	Size() int
}

// FixedSize returns a Splitter that closes a leaf every size bytes.
// A size of 0 or less falls back to DefaultBlockSize.
func FixedSize(size int) Splitter {
	if size <= 0 {
		size = DefaultBlockSize
	}
	return fixedSize{size: size}
}

type fixedSize struct {
	size int
}

func (f fixedSize) Size() int { return f.size }

func (f fixedSize) Accept(input []byte, buffered int) (int, bool) {
	remaining := f.size - buffered
	if remaining <= 0 {
		return 0, true
	}
	if len(input) >= remaining {
		return remaining, true
	}
	return len(input), false
}
