// Package diskstore is a flat-file block store for the unixfs-add and
// unixfs-cat commands: one file per block, named after its CID. It exists
// only so the two commands can hand off a DAG between separate process
// invocations; it is not part of the core DAG logic.
package diskstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"
)

// Store is a directory of CID-named block files, created on first use.
type Store struct {
	dir string
}

// Open prepares dir (creating it if necessary) as a block store root.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(c cid.Cid) string {
	return filepath.Join(s.dir, c.String())
}

// GetBlock implements reader.BlockGetter.
func (s *Store) GetBlock(_ context.Context, c cid.Cid) ([]byte, error) {
	raw, err := os.ReadFile(s.path(c))
	if err != nil {
		return nil, fmt.Errorf("diskstore: %w", err)
	}
	return raw, nil
}

// PutBlock implements adder.BlockPutter.
func (s *Store) PutBlock(_ context.Context, c cid.Cid, raw []byte) (cid.Cid, error) {
	if err := os.WriteFile(s.path(c), raw, 0o644); err != nil {
		return cid.Undef, fmt.Errorf("diskstore: %w", err)
	}
	return c, nil
}

// Len counts the blocks currently on disk.
func (s *Store) Len() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	return len(entries)
}
