// Package buffer persists outbound notifications in BoltDB while the
// messaging gateway is unavailable, so a gateway outage never blocks or
// loses wizard-side work.
package buffer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Outbox wraps BoltDB as a priority-ordered queue of pending notifications.
type Outbox struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the outbox bucket exists.
func Open(path string, bucket string) (*Outbox, error) {
	if bucket == "" {
		bucket = "outbox"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Outbox{
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

// Enqueue stores a notification under a priority-aware key so urgent
// messages drain first.
func (o *Outbox) Enqueue(n Notification) error {
	if o == nil || o.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	n.normalize()
	n.bucketKey = []byte(buildKey(n))

	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(o.bucket).Put(n.bucketKey, payload)
	})
}

// GetBatch returns up to limit notifications without removing them.
func (o *Outbox) GetBatch(limit int) ([]Notification, error) {
	if o == nil || o.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var pending []Notification
	err := o.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(o.bucket).Cursor()
		for k, v := c.First(); k != nil && len(pending) < limit; k, v = c.Next() {
			var n Notification
			if err := json.Unmarshal(v, &n); err != nil {
				continue
			}
			n.bucketKey = append([]byte(nil), k...)
			pending = append(pending, n)
		}
		return nil
	})
	return pending, err
}

// Remove deletes the notification from the outbox.
func (o *Outbox) Remove(n Notification) error {
	if o == nil || o.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if len(n.bucketKey) == 0 {
		return o.deleteByID(n.ID)
	}
	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(o.bucket).Delete(n.bucketKey)
	})
}

// Requeue re-inserts a notification after bumping its timestamp.
func (o *Outbox) Requeue(n Notification) error {
	n.bucketKey = nil
	n.Timestamp = time.Now()
	return o.Enqueue(n)
}

// Size returns the number of parked notifications.
func (o *Outbox) Size() (int, error) {
	if o == nil || o.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := o.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(o.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// PurgeOlderThan drops notifications stale enough that sending them would
// confuse the recipient.
func (o *Outbox) PurgeOlderThan(olderThan time.Time) error {
	if o == nil || o.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return o.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(o.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var n Notification
			if err := json.Unmarshal(v, &n); err != nil {
				continue
			}
			if n.Timestamp.Before(olderThan) {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Close closes the Bolt database.
func (o *Outbox) Close() error {
	if o == nil || o.db == nil {
		return nil
	}
	return o.db.Close()
}

// Stats exposes Bolt statistics for the health endpoint.
func (o *Outbox) Stats() bolt.Stats {
	if o == nil || o.db == nil {
		return bolt.Stats{}
	}
	return o.db.Stats()
}

func (o *Outbox) deleteByID(id string) error {
	if id == "" {
		return nil
	}
	return o.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(o.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var n Notification
			if err := json.Unmarshal(v, &n); err != nil {
				continue
			}
			if n.ID == id {
				return c.Delete()
			}
		}
		return nil
	})
}

func buildKey(n Notification) string {
	return fmt.Sprintf("%d_%020d_%s", n.Priority, n.Timestamp.UnixNano(), n.ID)
}
