// Package memstore is a minimal in-memory block store satisfying the
// reader.BlockGetter/adder.BlockPutter contracts, used by tests (the
// command-line tools use cmd/internal/diskstore instead). It is not part of
// the core DAG logic: a real
// deployment would back these interfaces with a networked exchange or a
// persistent datastore instead.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"
)

// Store is a concurrency-safe map from CID to raw block bytes.
type Store struct {
	mu     sync.RWMutex
	blocks map[cid.Cid][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{blocks: make(map[cid.Cid][]byte)}
}

// GetBlock implements reader.BlockGetter.
func (s *Store) GetBlock(_ context.Context, c cid.Cid) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.blocks[c]
	if !ok {
		return nil, fmt.Errorf("memstore: block not found: %s", c)
	}
	return raw, nil
}

// PutBlock implements adder.BlockPutter.
func (s *Store) PutBlock(_ context.Context, c cid.Cid, raw []byte) (cid.Cid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[c] = append([]byte(nil), raw...)
	return c, nil
}

// Has reports whether a block is present, mostly useful in tests.
func (s *Store) Has(c cid.Cid) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocks[c]
	return ok
}

// Len reports the number of distinct blocks stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}
