package store

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketMessages = []byte("messages")
	bucketMeta     = []byte("meta")

	metaKeyNextSender   = []byte("next_sender")
	metaKeyNextTarget   = []byte("next_target")
	metaKeyCreationTime = []byte("creation_time")
)

// BoltStore is the embedded-database MessageStore backend: one bbolt
// file per session, grounded on the same single-file KV approach
// chancacher uses for its overflow cache.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if necessary) a bbolt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: opening bolt db: %w", err)
	}
	b := &BoltStore{db: db}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMessages); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if meta.Get(metaKeyCreationTime) == nil {
			if err := putUint64(meta, metaKeyNextSender, 1); err != nil {
				return err
			}
			if err := putUint64(meta, metaKeyNextTarget, 1); err != nil {
				return err
			}
			return meta.Put(metaKeyCreationTime, []byte(time.Now().UTC().Format(time.RFC3339Nano)))
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func putUint64(b *bolt.Bucket, key []byte, v uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return b.Put(key, buf)
}

func getUint64(b *bolt.Bucket, key []byte) uint64 {
	v := b.Get(key)
	if len(v) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}

func seqKey(seqNum uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seqNum)
	return buf
}

// Reset clears all stored messages and resets cursors and creation time.
func (b *BoltStore) Reset() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketMessages); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		if _, err := tx.CreateBucket(bucketMessages); err != nil {
			return err
		}
		meta := tx.Bucket(bucketMeta)
		if err := putUint64(meta, metaKeyNextSender, 1); err != nil {
			return err
		}
		if err := putUint64(meta, metaKeyNextTarget, 1); err != nil {
			return err
		}
		return meta.Put(metaKeyCreationTime, []byte(time.Now().UTC().Format(time.RFC3339Nano)))
	})
}

// Refresh is a no-op: bbolt reads are always consistent with the last
// committed transaction, so there is no external state to reload.
func (b *BoltStore) Refresh() error { return nil }

func (b *BoltStore) CreationTime() time.Time {
	var t time.Time
	b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketMeta).Get(metaKeyCreationTime)
		parsed, err := time.Parse(time.RFC3339Nano, string(raw))
		if err == nil {
			t = parsed
		}
		return nil
	})
	return t
}

func (b *BoltStore) NextSenderSeq() uint64 {
	var n uint64
	b.db.View(func(tx *bolt.Tx) error {
		n = getUint64(tx.Bucket(bucketMeta), metaKeyNextSender)
		return nil
	})
	return n
}

func (b *BoltStore) SetNextSenderSeq(n uint64) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return putUint64(tx.Bucket(bucketMeta), metaKeyNextSender, n)
	})
}

func (b *BoltStore) IncrSenderSeq() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		return putUint64(meta, metaKeyNextSender, getUint64(meta, metaKeyNextSender)+1)
	})
}

func (b *BoltStore) NextTargetSeq() uint64 {
	var n uint64
	b.db.View(func(tx *bolt.Tx) error {
		n = getUint64(tx.Bucket(bucketMeta), metaKeyNextTarget)
		return nil
	})
	return n
}

func (b *BoltStore) SetNextTargetSeq(n uint64) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return putUint64(tx.Bucket(bucketMeta), metaKeyNextTarget, n)
	})
}

func (b *BoltStore) IncrTargetSeq() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		return putUint64(meta, metaKeyNextTarget, getUint64(meta, metaKeyNextTarget)+1)
	})
}

func (b *BoltStore) Set(seqNum uint64, raw []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMessages).Put(seqKey(seqNum), raw)
	})
}

func (b *BoltStore) Get(begin, end uint64) ([]string, error) {
	var out []string
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketMessages).Cursor()
		for k, v := c.Seek(seqKey(begin)); k != nil; k, v = c.Next() {
			seq := binary.BigEndian.Uint64(k)
			if seq > end {
				break
			}
			out = append(out, string(v))
		}
		return nil
	})
	return out, err
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}
