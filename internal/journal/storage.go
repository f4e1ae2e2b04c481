package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketEntries = []byte("entries")
	bucketByTime  = []byte("by_time")
)

// BoltStorage implements Journal using BoltDB
type BoltStorage struct {
	db *bolt.DB
}

// NewBoltStorage opens (or creates) the journal database at path
func NewBoltStorage(path string) (*BoltStorage, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketEntries, bucketByTime} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStorage{db: db}, nil
}

// Record stores a new entry and indexes it by creation time
func (s *BoltStorage) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		return fmt.Errorf("entry id is required")
	}

	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		if err := tx.Bucket(bucketEntries).Put([]byte(e.ID), data); err != nil {
			return fmt.Errorf("failed to store entry: %w", err)
		}
		if err := tx.Bucket(bucketByTime).Put(makeIndexKey(e.CreatedAt, e.ID), []byte(e.ID)); err != nil {
			return fmt.Errorf("failed to index entry: %w", err)
		}
		return nil
	})
}

// Update overwrites an existing entry
func (s *BoltStorage) Update(ctx context.Context, e *Entry) error {
	e.UpdatedAt = time.Now()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b.Get([]byte(e.ID)) == nil {
			return fmt.Errorf("entry not found: %s", e.ID)
		}

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		if err := b.Put([]byte(e.ID), data); err != nil {
			return fmt.Errorf("failed to update entry: %w", err)
		}
		return nil
	})
}

// Get retrieves an entry by ID
func (s *BoltStorage) Get(ctx context.Context, id string) (*Entry, error) {
	var e *Entry

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketEntries).Get([]byte(id))
		if data == nil {
			return nil
		}

		e = &Entry{}
		return json.Unmarshal(data, e)
	})

	return e, err
}

// List returns entries newest first, applying the filter
func (s *BoltStorage) List(ctx context.Context, filter ListFilter) ([]*Entry, error) {
	var entries []*Entry

	err := s.db.View(func(tx *bolt.Tx) error {
		entryBucket := tx.Bucket(bucketEntries)
		c := tx.Bucket(bucketByTime).Cursor()

		count := 0
		skipped := 0

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			data := entryBucket.Get(v)
			if data == nil {
				continue
			}

			var e Entry
			if err := json.Unmarshal(data, &e); err != nil {
				continue
			}

			if filter.Status != "" && e.Status != filter.Status {
				continue
			}
			if filter.Account != "" && !strings.EqualFold(e.Account, filter.Account) {
				continue
			}
			if filter.CampaignID != 0 && e.CampaignID != filter.CampaignID {
				continue
			}

			if skipped < filter.Offset {
				skipped++
				continue
			}

			entries = append(entries, &e)
			count++

			if filter.Limit > 0 && count >= filter.Limit {
				break
			}
		}

		return nil
	})

	return entries, err
}

// Stats returns per-status counts
func (s *BoltStorage) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return nil
			}

			stats.Total++
			switch e.Status {
			case StatusSubmitted:
				stats.Submitted++
			case StatusSettled:
				stats.Settled++
			case StatusReverted:
				stats.Reverted++
			case StatusRejected:
				stats.Rejected++
			case StatusAbandoned:
				stats.Abandoned++
			}
			return nil
		})
	})

	return stats, err
}

// AbandonPending marks entries still "submitted" as abandoned. It runs at
// startup: whoever was waiting on them is gone
func (s *BoltStorage) AbandonPending(ctx context.Context) (int, error) {
	marked := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)

		var updates []*Entry
		err := b.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return nil
			}
			if e.Status == StatusSubmitted {
				updates = append(updates, &e)
			}
			return nil
		})
		if err != nil {
			return err
		}

		now := time.Now()
		for _, e := range updates {
			e.Status = StatusAbandoned
			e.Error = "process restarted before settlement"
			e.UpdatedAt = now

			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(e.ID), data); err != nil {
				return err
			}
			marked++
		}
		return nil
	})

	return marked, err
}

// Cleanup removes finished entries last updated before now-maxAge
func (s *BoltStorage) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		entryBucket := tx.Bucket(bucketEntries)
		indexBucket := tx.Bucket(bucketByTime)

		var toDelete []*Entry
		err := entryBucket.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return nil
			}
			if e.Finished() && e.UpdatedAt.Before(cutoff) {
				toDelete = append(toDelete, &e)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, e := range toDelete {
			if err := indexBucket.Delete(makeIndexKey(e.CreatedAt, e.ID)); err != nil {
				return err
			}
			if err := entryBucket.Delete([]byte(e.ID)); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})

	return deleted, err
}

// Close closes the database connection
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

// makeIndexKey creates a sortable key from timestamp and ID
func makeIndexKey(t time.Time, id string) []byte {
	// Fixed-width UTC so keys sort chronologically
	return []byte(t.UTC().Format("20060102T150405.000000000Z") + ":" + id)
}
