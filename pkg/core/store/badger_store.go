package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/duskchain/duskd/pkg/core/types"
)

// Keys:
//
//	header:<8-byte big-endian height> -> gob-encoded types.BlockHeader
//	meta:len                          -> 8-byte big-endian header count
//
// BadgerStore implements Store using BadgerDB, exactly as the teacher's
// BlockStore did for full blocks: one key per indexed item plus a small
// metadata namespace, all behind db.Update/db.View transactions.
type BadgerStore struct {
	db *badger.DB
	mu sync.RWMutex

	genesis types.BlockHeader
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore creates or opens a BadgerDB-backed header store at path. If
// path is empty, it opens an in-memory instance (used by tests and by the
// regtest network). If the store is empty, genesis is written at height 0 and
// becomes fixed for the life of the store; otherwise the existing height-0
// header is loaded and genesis is ignored.
func NewBadgerStore(path string, genesis types.BlockHeader) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	s := &BadgerStore{db: db}

	length, err := s.length()
	if err != nil {
		db.Close()
		return nil, err
	}
	if length == 0 {
		if err := s.appendLocked([]types.BlockHeader{genesis}); err != nil {
			db.Close()
			return nil, err
		}
		s.genesis = genesis
	} else {
		existing, err := s.headerAt(0)
		if err != nil {
			db.Close()
			return nil, err
		}
		s.genesis = existing
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func headerKey(height types.Height) []byte {
	key := make([]byte, len("header:")+8)
	copy(key, "header:")
	binary.BigEndian.PutUint64(key[len("header:"):], height)
	return key
}

var lenKey = []byte("meta:len")

func (s *BadgerStore) length() (int, error) {
	var n uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lenKey)
		if err == badger.ErrKeyNotFound {
			n = 0
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			n = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	return int(n), err
}

func (s *BadgerStore) headerAt(height types.Height) (types.BlockHeader, error) {
	var header types.BlockHeader
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(headerKey(height))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&header)
		})
	})
	return header, err
}

func (s *BadgerStore) Genesis() types.BlockHeader {
	return s.genesis
}

func (s *BadgerStore) Len() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.length()
}

func (s *BadgerStore) Iter() ([]StoredHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	length, err := s.length()
	if err != nil {
		return nil, err
	}
	out := make([]StoredHeader, 0, length)
	for h := 0; h < length; h++ {
		header, err := s.headerAt(types.Height(h))
		if err != nil {
			return nil, err
		}
		out = append(out, StoredHeader{Height: types.Height(h), Header: header})
	}
	return out, nil
}

func (s *BadgerStore) Put(headers []types.BlockHeader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(headers)
}

func (s *BadgerStore) appendLocked(headers []types.BlockHeader) error {
	length, err := s.length()
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for i, header := range headers {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(header); err != nil {
				return err
			}
			height := types.Height(length + i)
			if err := txn.Set(headerKey(height), buf.Bytes()); err != nil {
				return err
			}
		}
		newLen := make([]byte, 8)
		binary.BigEndian.PutUint64(newLen, uint64(length+len(headers)))
		return txn.Set(lenKey, newLen)
	})
}

func (s *BadgerStore) Rollback(height types.Height) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	length, err := s.length()
	if err != nil {
		return err
	}
	if int(height) > length-1 {
		return fmt.Errorf("store: rollback height %d exceeds current length %d", height, length)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for h := int(height) + 1; h < length; h++ {
			if err := txn.Delete(headerKey(types.Height(h))); err != nil {
				return err
			}
		}
		newLen := make([]byte, 8)
		binary.BigEndian.PutUint64(newLen, height+1)
		return txn.Set(lenKey, newLen)
	})
}
