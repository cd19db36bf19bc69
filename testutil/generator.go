package testutil

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipfs/go-unixfs-filecore/data/builder"
	"github.com/ipfs/go-unixfs-filecore/file/adder"
)

// GenerateFile generates a random UnixFS file of the given size, storing
// its blocks through putter, and returns a DirEntry representing it.
func GenerateFile(t *testing.T, putter adder.BlockPutter, randReader io.Reader, size int, opts ...adder.Option) DirEntry {
	content := make([]byte, size)
	_, err := io.ReadFull(randReader, content)
	require.NoError(t, err)

	a := adder.New(context.Background(), putter, opts...)
	require.NoError(t, a.Push(content))
	root, err := a.Finish()
	require.NoError(t, err)

	return DirEntry{Content: content, Root: root, TSize: uint64(size)}
}

// GenerateDirectory generates a random directory tree that aims for
// targetSize bytes of total file content, spread unevenly across a random
// number of files and subdirectories, storing every block through putter.
func GenerateDirectory(t *testing.T, putter adder.BlockPutter, randReader io.Reader, targetSize int) DirEntry {
	return GenerateDirectoryFrom(t, putter, randReader, targetSize, "")
}

// GenerateDirectoryFrom is the same as GenerateDirectory but allows the
// caller to specify a starting path, useful for building nested
// directories with predictable naming.
func GenerateDirectoryFrom(t *testing.T, putter adder.BlockPutter, randReader io.Reader, targetSize int, dir string) DirEntry {
	targetFileSize := targetSize / 16
	if targetFileSize < 1 {
		targetFileSize = 1
	}

	var curSize int
	children := make([]DirEntry, 0)
	for curSize < targetSize {
		switch rndInt(randReader, 6) {
		case 0: // 1 in 6 chance of finishing this directory early, if not at root
			if dir != "" && len(children) > 0 {
				curSize = targetSize
			}
		case 1: // 1 in 6 chance of making a subdirectory
			if targetSize-curSize <= 1024 {
				continue
			}
			name := randomName(randReader, "dir", children)
			child := GenerateDirectoryFrom(t, putter, randReader, targetSize-curSize, dir+"/"+name)
			children = append(children, child)
			curSize += int(child.TSize)
		default: // 4 in 6 chance of making a file
			size := 1
			if targetFileSize > 1 {
				n, err := rand.Int(randReader, big.NewInt(int64(targetFileSize)))
				require.NoError(t, err)
				size = int(n.Int64())
				if size == 0 {
					size = 1
				}
			}
			if size > targetSize-curSize {
				size = targetSize - curSize
			}
			if size <= 0 {
				size = 1
			}
			entry := GenerateFile(t, putter, randReader, size)
			entry.Path = dir + "/" + randomName(randReader, "file", children)
			curSize += size
			children = append(children, entry)
		}
	}

	dirEntry := BuildDirectoryEntry(t, putter, children)
	dirEntry.Path = dir
	dirEntry.Children = children
	for _, c := range children {
		dirEntry.TSize += c.TSize
	}
	return dirEntry
}

// BuildDirectoryEntry assembles a flat directory node over children,
// storing it through putter.
func BuildDirectoryEntry(t *testing.T, putter adder.BlockPutter, children []DirEntry) DirEntry {
	ls := builder.LinkSystemFor(context.Background(), putter)
	entries := make([]builder.DirEntry, 0, len(children))
	for _, c := range children {
		name := c.Path
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		entries = append(entries, builder.DirEntry{Name: name, Cid: c.Root, Size: c.TSize})
	}
	root, err := builder.BuildDirectory(ls, entries)
	require.NoError(t, err)
	return DirEntry{Root: root}
}

func rndInt(randReader io.Reader, max int) int {
	n, err := rand.Int(randReader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return int(n.Int64())
}

func randomName(randReader io.Reader, prefix string, existing []DirEntry) string {
	for {
		n, err := rand.Int(randReader, big.NewInt(1<<32))
		if err != nil {
			n = big.NewInt(0)
		}
		name := fmt.Sprintf("%s-%x", prefix, n.Int64())
		if !isDupe(existing, name) {
			return name
		}
	}
}

func isDupe(children []DirEntry, name string) bool {
	for _, c := range children {
		if strings.HasSuffix(c.Path, "/"+name) || c.Path == name {
			return true
		}
	}
	return false
}
