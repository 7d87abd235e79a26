package remotesync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// BucketOutbox holds envelopes waiting for a retry.
const BucketOutbox = "sac_outbox"

// OutboxItem is a failed delivery kept for retry.
type OutboxItem struct {
	ID        string    `json:"id"`
	Envelope  Envelope  `json:"envelope"`
	Retries   int       `json:"retries"`
	LastError string    `json:"last_error,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	bucketKey []byte
}

// Outbox persists pending envelopes in bbolt, oldest first.
type Outbox struct {
	db *bolt.DB
}

// NewOutbox ensures the outbox bucket exists on db.
func NewOutbox(db *bolt.DB) (*Outbox, error) {
	if db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketOutbox))
		return err
	}); err != nil {
		return nil, err
	}
	return &Outbox{db: db}, nil
}

// Enqueue stores an item keyed by timestamp and id.
func (o *Outbox) Enqueue(item OutboxItem) error {
	if o == nil || o.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now()
	}
	key := []byte(fmt.Sprintf("%020d_%s", item.Timestamp.UnixNano(), item.ID))

	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketOutbox)).Put(key, payload)
	})
}

// GetBatch returns up to limit items without removing them.
func (o *Outbox) GetBatch(limit int) ([]OutboxItem, error) {
	if o == nil || o.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var items []OutboxItem
	err := o.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(BucketOutbox)).Cursor()
		for k, v := c.First(); k != nil && len(items) < limit; k, v = c.Next() {
			var item OutboxItem
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			item.bucketKey = append([]byte(nil), k...)
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

// Remove deletes an item returned by GetBatch.
func (o *Outbox) Remove(item OutboxItem) error {
	if o == nil || o.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if len(item.bucketKey) == 0 {
		return fmt.Errorf("outbox item %s has no key", item.ID)
	}
	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketOutbox)).Delete(item.bucketKey)
	})
}

// Requeue moves an item to the back of the queue.
func (o *Outbox) Requeue(item OutboxItem) error {
	if err := o.Remove(item); err != nil {
		return err
	}
	item.bucketKey = nil
	item.Timestamp = time.Now()
	return o.Enqueue(item)
}

// Size returns the number of pending items.
func (o *Outbox) Size() (int, error) {
	if o == nil || o.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := o.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(BucketOutbox)).Stats().KeyN
		return nil
	})
	return count, err
}
