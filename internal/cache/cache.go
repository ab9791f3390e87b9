// Package cache persists fetched thread posts, one record per post id,
// scoped to a (domain, topic) pair.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

var (
	// ErrCorrupt is wrapped by Get and List when a stored record cannot be
	// decoded or is missing required fields.
	ErrCorrupt = errors.New("corrupt cache record")

	// ErrReadOnly is returned by Put on a scope opened read-only that does not exist.
	ErrReadOnly = errors.New("cache opened read-only")
)

// Post is one cached thread post: its metadata, raw body, and when it was fetched.
type Post struct {
	PostNumber uint64    `json:"post_number"`
	PostID     uint64    `json:"post_id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	Raw        string    `json:"raw"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// OlderThan reports whether the post was created strictly before threshold.
func (p Post) OlderThan(threshold time.Time) bool {
	return p.CreatedAt.Before(threshold)
}

// check reports why p cannot be the record stored under postID.
func (p Post) check(postID uint64) error {
	switch {
	case p.PostID == 0:
		return errors.New("post_id is missing")
	case p.PostID != postID:
		return fmt.Errorf("post_id %d stored under key %d", p.PostID, postID)
	case p.PostNumber == 0:
		return errors.New("post_number is missing")
	case p.CreatedAt.IsZero():
		return errors.New("created_at is missing")
	case p.FetchedAt.IsZero():
		return errors.New("fetched_at is missing")
	}
	return nil
}

// decoded wraps a failed check of a record read back from storage.
func decoded(p Post, postID uint64) error {
	if err := p.check(postID); err != nil {
		return fmt.Errorf("post %d: %w: %v", postID, ErrCorrupt, err)
	}
	return nil
}

// Store is a keyed collection of posts for a single topic.
type Store interface {
	// Get returns the record for postID, or nil with a nil error when absent.
	Get(ctx context.Context, postID uint64) (*Post, error)

	// Put creates or replaces the record keyed by p.PostID. Records missing
	// an id, post number or timestamps are rejected.
	Put(ctx context.Context, p Post) error

	// List returns every record in the scope ordered by post number.
	List(ctx context.Context) ([]Post, error)

	Close() error
}

// Options selects and locates a store.
type Options struct {
	Backend string // file, sqlite or bolt; empty means file
	Root    string // cache root directory
	Domain  string
	TopicID uint64

	// ReadOnly opens without creating anything on disk. A scope that was
	// never written reads as empty.
	ReadOnly bool
}

// Open opens the store described by opts, creating its scope if needed.
func Open(opts Options) (Store, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, errors.New("cache root is required")
	}
	if strings.TrimSpace(opts.Domain) == "" {
		return nil, errors.New("cache domain is required")
	}
	if opts.TopicID == 0 {
		return nil, errors.New("topic id is required")
	}

	if opts.ReadOnly {
		return openReadOnly(opts)
	}

	switch opts.Backend {
	case "", BackendFile:
		return OpenFile(opts.Root, opts.Domain, opts.TopicID)
	case BackendSQLite:
		return OpenSQLite(opts.Root, opts.Domain, opts.TopicID)
	case BackendBolt:
		return OpenBolt(opts.Root, opts.Domain, opts.TopicID)
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want file, sqlite, or bolt)", opts.Backend)
	}
}

func openReadOnly(opts Options) (Store, error) {
	var path string
	switch opts.Backend {
	case "", BackendFile:
		path = filepath.Join(opts.Root, opts.Domain, strconv.FormatUint(opts.TopicID, 10))
	case BackendSQLite:
		path = filepath.Join(opts.Root, SQLiteFile)
	case BackendBolt:
		path = filepath.Join(opts.Root, BoltFile)
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want file, sqlite, or bolt)", opts.Backend)
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return emptyStore{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("stat cache: %w", err)
	}

	switch opts.Backend {
	case BackendSQLite:
		return OpenSQLite(opts.Root, opts.Domain, opts.TopicID)
	case BackendBolt:
		return openBolt(opts.Root, opts.Domain, opts.TopicID, true)
	default:
		return &FileStore{dir: path}, nil
	}
}

// Check verifies that backend can be opened for writing under root without
// adding any records or scopes.
func Check(backend, root string) error {
	if strings.TrimSpace(root) == "" {
		return errors.New("cache root is required")
	}
	switch backend {
	case "", BackendFile:
		return checkDir(root)
	case BackendSQLite:
		db, err := openSQLiteDB(root)
		if err != nil {
			return err
		}
		return db.Close()
	case BackendBolt:
		return checkBolt(root)
	default:
		return fmt.Errorf("unknown cache backend %q (want file, sqlite, or bolt)", backend)
	}
}

func checkDir(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	f, err := os.CreateTemp(root, ".check-*")
	if err != nil {
		return fmt.Errorf("cache dir not writable: %w", err)
	}
	_ = f.Close()
	return os.Remove(f.Name())
}

// emptyStore stands in for a read-only scope that does not exist yet.
type emptyStore struct{}

func (emptyStore) Get(context.Context, uint64) (*Post, error) { return nil, nil }
func (emptyStore) Put(context.Context, Post) error            { return ErrReadOnly }
func (emptyStore) List(context.Context) ([]Post, error)       { return nil, nil }
func (emptyStore) Close() error                               { return nil }

func sortByPostNumber(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PostNumber < posts[j].PostNumber
	})
}
