package cache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltFile is the bbolt database file name under the cache root.
const BoltFile = "threadpull.bolt"

// BoltStore keeps records in a bbolt file: one bucket per domain with a
// nested bucket per topic, keyed by big-endian post id.
type BoltStore struct {
	db      *bolt.DB
	domain  []byte
	topicID []byte
}

func OpenBolt(root, domain string, topicID uint64) (*BoltStore, error) {
	return openBolt(root, domain, topicID, false)
}

// openBolt opens the shared database. Read-only handles skip bucket
// creation; Get and List treat a missing bucket as an empty scope.
func openBolt(root, domain string, topicID uint64, readOnly bool) (*BoltStore, error) {
	db, err := openBoltDB(root, readOnly)
	if err != nil {
		return nil, err
	}

	s := &BoltStore{
		db:      db,
		domain:  []byte(domain),
		topicID: []byte(strconv.FormatUint(topicID, 10)),
	}
	if readOnly {
		return s, nil
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.domain)
		if err != nil {
			return err
		}
		_, err = b.CreateBucketIfNotExists(s.topicID)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create topic bucket: %w", err)
	}

	return s, nil
}

func openBoltDB(root string, readOnly bool) (*bolt.DB, error) {
	if !readOnly {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := bolt.Open(filepath.Join(root, BoltFile), 0o600, &bolt.Options{Timeout: 2 * time.Second, ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	return db, nil
}

// checkBolt takes the write lock once and rolls back.
func checkBolt(root string) error {
	db, err := openBoltDB(root, false)
	if err != nil {
		return err
	}
	tx, err := db.Begin(true)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("begin bolt transaction: %w", err)
	}
	_ = tx.Rollback()
	return db.Close()
}

func (s *BoltStore) Get(_ context.Context, postID uint64) (*Post, error) {
	var p *Post
	err := s.db.View(func(tx *bolt.Tx) error {
		b := s.bucket(tx)
		if b == nil {
			return nil
		}
		v := b.Get(postKey(postID))
		if v == nil {
			return nil
		}
		var rec Post
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("decode post %d: %w: %v", postID, ErrCorrupt, err)
		}
		if err := decoded(rec, postID); err != nil {
			return err
		}
		p = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *BoltStore) Put(_ context.Context, p Post) error {
	if err := p.check(p.PostID); err != nil {
		return fmt.Errorf("invalid post: %w", err)
	}
	enc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode post %d: %w", p.PostID, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := s.bucket(tx)
		if b == nil {
			return ErrReadOnly
		}
		if err := b.Put(postKey(p.PostID), enc); err != nil {
			return fmt.Errorf("save post %d: %w", p.PostID, err)
		}
		return nil
	})
}

func (s *BoltStore) List(_ context.Context) ([]Post, error) {
	var posts []Post
	err := s.db.View(func(tx *bolt.Tx) error {
		b := s.bucket(tx)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			id := binary.BigEndian.Uint64(k)
			var rec Post
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode post %d: %w: %v", id, ErrCorrupt, err)
			}
			if err := decoded(rec, id); err != nil {
				return err
			}
			posts = append(posts, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortByPostNumber(posts)
	return posts, nil
}

func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) bucket(tx *bolt.Tx) *bolt.Bucket {
	d := tx.Bucket(s.domain)
	if d == nil {
		return nil
	}
	return d.Bucket(s.topicID)
}

func postKey(id uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], id)
	return k[:]
}
