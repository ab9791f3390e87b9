package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileStore keeps one pretty-printed JSON file per post:
// {root}/{domain}/{topic}/{post_id}.json
type FileStore struct {
	dir string
}

// OpenFile creates the topic directory and returns a store rooted there.
func OpenFile(root, domain string, topicID uint64) (*FileStore, error) {
	dir := filepath.Join(root, domain, strconv.FormatUint(topicID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory holding this topic's records.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Get(_ context.Context, postID uint64) (*Post, error) {
	path := s.path(postID)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var p Post
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w: %v", path, ErrCorrupt, err)
	}
	if err := decoded(p, postID); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

// Put writes to a temp file in the same directory and renames it over the
// target, so readers never observe a partially written record.
func (s *FileStore) Put(_ context.Context, p Post) error {
	if err := p.check(p.PostID); err != nil {
		return fmt.Errorf("invalid post: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode post %d: %w", p.PostID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".post-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}

	path := s.path(p.PostID)
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Post, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	var posts []Post
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			continue
		}
		p, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			posts = append(posts, *p)
		}
	}
	sortByPostNumber(posts)
	return posts, nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) path(postID uint64) string {
	return filepath.Join(s.dir, strconv.FormatUint(postID, 10)+".json")
}
