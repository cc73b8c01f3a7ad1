package storage

import (
	"fmt"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
)

// BlockStore is a block-addressed key/value store backing
// universe.chunks and per-world .world/.tempworld files (spec.md §6
// "Persisted files").
type BlockStore struct {
	db *leveldb.DB
}

// OpenBlockStore opens (creating if absent) a LevelDB database at path.
func OpenBlockStore(path string) (*BlockStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("storage: open block store %s: %w", path, err)
	}
	return &BlockStore{db: db}, nil
}

// Get returns the bytes stored at key, or (nil, false) if absent.
func (b *BlockStore) Get(key []byte) ([]byte, bool, error) {
	v, err := b.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: get block: %w", err)
	}
	return v, true, nil
}

// Put stores value at key.
func (b *BlockStore) Put(key, value []byte) error {
	if err := b.db.Put(key, value, nil); err != nil {
		return fmt.Errorf("storage: put block: %w", err)
	}
	return nil
}

// Delete removes key, if present.
func (b *BlockStore) Delete(key []byte) error {
	if err := b.db.Delete(key, nil); err != nil {
		return fmt.Errorf("storage: delete block: %w", err)
	}
	return nil
}

// Batch applies a set of puts/deletes atomically.
type Batch struct {
	inner leveldb.Batch
}

// NewBatch returns an empty batch.
func NewBatch() *Batch { return &Batch{} }

// Put stages a put within the batch.
func (b *Batch) Put(key, value []byte) { b.inner.Put(key, value) }

// Delete stages a delete within the batch.
func (b *Batch) Delete(key []byte) { b.inner.Delete(key) }

// Commit applies every staged operation atomically.
func (b *BlockStore) Commit(batch *Batch) error {
	if err := b.db.Write(&batch.inner, nil); err != nil {
		return fmt.Errorf("storage: commit batch: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (b *BlockStore) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("storage: close block store: %w", err)
	}
	return nil
}
