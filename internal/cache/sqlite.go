package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteFile is the database file name under the cache root.
const SQLiteFile = "threadpull.db"

// SQLiteStore keeps every topic in one SQLite database, keyed by
// (domain, topic_id, post_id).
type SQLiteStore struct {
	db      *sql.DB
	domain  string
	topicID uint64
}

func OpenSQLite(root, domain string, topicID uint64) (*SQLiteStore, error) {
	db, err := openSQLiteDB(root)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, domain: domain, topicID: topicID}, nil
}

// openSQLiteDB opens the shared database and brings its schema up to date.
func openSQLiteDB(root string) (*sql.DB, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(root, SQLiteFile))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (s *SQLiteStore) Get(ctx context.Context, postID uint64) (*Post, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT post_number, post_id, username, created_at, raw, fetched_at
		FROM posts
		WHERE domain = ? AND topic_id = ? AND post_id = ?
	`, s.domain, int64(s.topicID), int64(postID))

	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := decoded(p, postID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) Put(ctx context.Context, p Post) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if err := p.check(p.PostID); err != nil {
		return fmt.Errorf("invalid post: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (
			domain, topic_id, post_id, post_number, username, created_at, raw, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(domain, topic_id, post_id) DO UPDATE SET
			post_number = excluded.post_number,
			username = excluded.username,
			created_at = excluded.created_at,
			raw = excluded.raw,
			fetched_at = excluded.fetched_at
	`,
		s.domain,
		int64(s.topicID),
		int64(p.PostID),
		int64(p.PostNumber),
		p.Username,
		formatTime(p.CreatedAt),
		p.Raw,
		formatTime(p.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("save post %d: %w", p.PostID, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Post, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT post_number, post_id, username, created_at, raw, fetched_at
		FROM posts
		WHERE domain = ? AND topic_id = ?
		ORDER BY post_number ASC
	`, s.domain, int64(s.topicID))
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		if err := decoded(p, p.PostID); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(scanner rowScanner) (Post, error) {
	var (
		p                    Post
		postNumber, postID   int64
		createdAt, fetchedAt string
	)

	if err := scanner.Scan(&postNumber, &postID, &p.Username, &createdAt, &p.Raw, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, err
		}
		return Post{}, fmt.Errorf("scan post: %w", err)
	}
	p.PostNumber = uint64(postNumber)
	p.PostID = uint64(postID)

	var err error
	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return Post{}, fmt.Errorf("parse created_at of post %d: %w: %v", postID, ErrCorrupt, err)
	}
	p.FetchedAt, err = parseTime(fetchedAt)
	if err != nil {
		return Post{}, fmt.Errorf("parse fetched_at of post %d: %w: %v", postID, ErrCorrupt, err)
	}
	return p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}
