package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/danmuck/petctl/internal/coordinator"
	"github.com/rs/zerolog/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	ErrNotFound = errors.New("store: round not found")
	ErrClosed   = errors.New("store: closed")
)

var roundPrefix = []byte("round/")

// RoundStore keeps one record per completed round, keyed by round id.
type RoundStore struct {
	mu     sync.RWMutex
	db     *leveldb.DB
	path   string
	closed bool
}

// Open opens or creates a LevelDB round store at path.
func Open(path string) (*RoundStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store: invalid path: path is empty")
	}
	db, err := leveldb.OpenFile(path, &opt.Options{
		BlockCacheCapacity: 8 * opt.MiB,
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("store: opened")
	return &RoundStore{db: db, path: path}, nil
}

// OpenMemory returns a store backed by memory only.
func OpenMemory() (*RoundStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("store: open memory: %w", err)
	}
	return &RoundStore{db: db, path: ":memory:"}, nil
}

func roundKey(id uint64) []byte {
	key := make([]byte, len(roundPrefix)+8)
	copy(key, roundPrefix)
	binary.BigEndian.PutUint64(key[len(roundPrefix):], id)
	return key
}

// PutRound writes a completed round, replacing any record with the same id.
func (s *RoundStore) PutRound(r coordinator.RoundRecord) error {
	value, err := encodeRecord(r)
	if err != nil {
		return fmt.Errorf("store: encode round %d: %w", r.RoundID, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.db.Put(roundKey(r.RoundID), value, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("store: put round %d: %w", r.RoundID, err)
	}
	log.Debug().Uint64("round", r.RoundID).Msg("store: round saved")
	return nil
}

// GetRound returns the record for id or ErrNotFound.
func (s *RoundStore) GetRound(id uint64) (coordinator.RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return coordinator.RoundRecord{}, ErrClosed
	}
	value, err := s.db.Get(roundKey(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return coordinator.RoundRecord{}, ErrNotFound
	}
	if err != nil {
		return coordinator.RoundRecord{}, fmt.Errorf("store: get round %d: %w", id, err)
	}
	return decodeRecord(value)
}

// LatestRound returns the record with the highest round id.
func (s *RoundStore) LatestRound() (coordinator.RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return coordinator.RoundRecord{}, ErrClosed
	}
	iter := s.db.NewIterator(util.BytesPrefix(roundPrefix), nil)
	defer iter.Release()
	if !iter.Last() {
		if err := iter.Error(); err != nil {
			return coordinator.RoundRecord{}, fmt.Errorf("store: iterate rounds: %w", err)
		}
		return coordinator.RoundRecord{}, ErrNotFound
	}
	return decodeRecord(iter.Value())
}

// Close closes the database. Closing twice is a no-op; other methods return
// ErrClosed afterwards.
func (s *RoundStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	log.Debug().Str("path", s.path).Msg("store: closed")
	return s.db.Close()
}
