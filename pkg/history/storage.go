// Package history keeps a record of pairings established by the relay
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("pairings")

// Record describes a single successful pairing
type Record struct {
	Code         string    `json:"code"`
	ReceiverID   string    `json:"receiver_id"`
	ReceiverAddr string    `json:"receiver_addr"`
	SenderID     string    `json:"sender_id"`
	SenderAddr   string    `json:"sender_addr"`
	PairedAt     time.Time `json:"paired_at"`
}

// Storage is an interface for storing and retrieving pairing records
type Storage interface {
	Store(Record) error
	// List returns at most limit most recent records, newest first. Zero limit means all.
	List(limit int) ([]Record, error)
	Close() error
}

type inMemoryStorage struct {
	lock     sync.Mutex
	records  []Record
	capacity int
}

func (s *inMemoryStorage) Store(r Record) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.records = append(s.records, r)
	if s.capacity > 0 && len(s.records) > s.capacity {
		s.records = s.records[len(s.records)-s.capacity:]
	}
	return nil
}

func (s *inMemoryStorage) List(limit int) ([]Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	records := []Record{}
	for i := len(s.records) - 1; i >= 0; i-- {
		if limit > 0 && len(records) >= limit {
			break
		}
		records = append(records, s.records[i])
	}
	return records, nil
}

func (s *inMemoryStorage) Close() error {
	return nil
}

// NewInMemoryStorage creates a Storage keeping up to capacity most recent records in memory.
// Zero capacity means unbounded.
func NewInMemoryStorage(capacity int) Storage {
	return &inMemoryStorage{capacity: capacity}
}

type boltStorage struct {
	db *bolt.DB
}

func (s *boltStorage) Store(r Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		encoded, encodeErr := json.Marshal(r)
		if encodeErr != nil {
			return encodeErr
		}
		seq, seqErr := b.NextSequence()
		if seqErr != nil {
			return seqErr
		}
		return b.Put(sequenceKey(seq), encoded)
	})
}

func (s *boltStorage) List(limit int) ([]Record, error) {
	records := []Record{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			records = append(records, r)
		}
		return nil
	})
	return records, err
}

func (s *boltStorage) Close() error {
	return s.db.Close()
}

// sequence keys are big endian, so the cursor iterates in insertion order
func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// NewBoltStorage creates a BoltDB (persistent, on-disk storage) Storage instance
func NewBoltStorage(path string) (Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	if updateErr := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); updateErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create BoltDB bucket: %w", updateErr)
	}
	return &boltStorage{db: db}, nil
}
