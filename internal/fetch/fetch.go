// Package fetch resolves every post of a thread, reusing cached records
// where they are old enough and fetching the rest from the forum.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ppiankov/threadpull/internal/cache"
	"github.com/ppiankov/threadpull/internal/discourse"
)

const (
	// BatchSize is the number of post ids sent per metadata request.
	BatchSize = 20
	// DefaultPause separates consecutive requests to the forum.
	DefaultPause = 200 * time.Millisecond
)

// ErrMissingMetadata is returned when a post in the stream has neither a
// fresh cache record nor inline or batch-fetched metadata.
var ErrMissingMetadata = errors.New("no metadata for post")

// Source is the remote forum a thread is read from.
type Source interface {
	FetchTopic(ctx context.Context, topicID uint64) (*discourse.Topic, error)
	FetchPosts(ctx context.Context, topicID uint64, postIDs []uint64) ([]discourse.PostMetadata, error)
	FetchRaw(ctx context.Context, topicID, postNumber uint64) (string, error)
}

// Stats counts the work done by one run.
type Stats struct {
	Cached  int // posts reused from the cache
	Fetched int // posts whose raw content was downloaded
	Batches int // metadata batch requests issued
}

// Result is a fully resolved thread.
type Result struct {
	Title string
	Posts []cache.Post // one per stream id, in stream order
	Stats Stats
}

// Fetcher runs one thread through the planner and the resolution pass.
type Fetcher struct {
	Source Source
	Store  cache.Store
	Pause  time.Duration
	Log    io.Writer // progress output; nil disables it

	now   func() time.Time
	sleep func(time.Duration)
}

// New returns a Fetcher with the default pause and wall-clock time.
func New(src Source, store cache.Store) *Fetcher {
	return &Fetcher{
		Source: src,
		Store:  store,
		Pause:  DefaultPause,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Run fetches the topic, fills metadata gaps in batches, then walks the
// post stream once in order, taking each post from the cache when it was
// created before threshold and from the forum otherwise. Every error is
// fatal; records persisted before the failure stay valid for the next run.
func (f *Fetcher) Run(ctx context.Context, topicID uint64, threshold time.Time) (*Result, error) {
	if f.now == nil {
		f.now = time.Now
	}
	if f.sleep == nil {
		f.sleep = time.Sleep
	}

	f.logf("Fetching topic metadata...\n")
	topic, err := f.Source.FetchTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	ids := topic.PostStream.Stream
	f.logf("Topic: %s\n", topic.Title)
	f.logf("Total posts: %d\n", len(ids))

	index := make(map[uint64]discourse.PostMetadata, len(ids))
	for _, p := range topic.PostStream.Posts {
		index[p.ID] = p
	}

	need, err := Plan(ctx, ids, index, f.Store, threshold)
	if err != nil {
		return nil, err
	}

	res := &Result{Title: topic.Title, Posts: make([]cache.Post, 0, len(ids))}

	if len(need) > 0 {
		f.logf("Batch-fetching metadata for %d posts...\n", len(need))
		batches, err := f.aggregate(ctx, topicID, need, index)
		if err != nil {
			return nil, err
		}
		res.Stats.Batches = batches
	}

	for i, id := range ids {
		cached, err := f.Store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("check cache for post %d: %w", id, err)
		}
		if cached != nil && cached.OlderThan(threshold) {
			f.logf("[%d/%d] Post #%d (id=%d) cached, skipping\n", i+1, len(ids), cached.PostNumber, id)
			res.Posts = append(res.Posts, *cached)
			res.Stats.Cached++
			continue
		}

		meta, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("%w id=%d", ErrMissingMetadata, id)
		}

		f.logf("[%d/%d] Fetching raw post #%d (id=%d)...\n", i+1, len(ids), meta.PostNumber, id)
		raw, err := f.Source.FetchRaw(ctx, topicID, meta.PostNumber)
		if err != nil {
			return nil, fmt.Errorf("fetch raw content for post #%d: %w", meta.PostNumber, err)
		}

		post := cache.Post{
			PostNumber: meta.PostNumber,
			PostID:     meta.ID,
			Username:   meta.Username,
			CreatedAt:  meta.CreatedAt.UTC(),
			Raw:        raw,
			FetchedAt:  f.now().UTC(),
		}
		if err := f.Store.Put(ctx, post); err != nil {
			return nil, fmt.Errorf("cache post %d: %w", id, err)
		}
		res.Posts = append(res.Posts, post)
		res.Stats.Fetched++

		if i < len(ids)-1 {
			f.sleep(f.Pause)
		}
	}

	return res, nil
}

// aggregate batch-fetches metadata for ids and merges it into index. It
// returns the number of requests made.
func (f *Fetcher) aggregate(ctx context.Context, topicID uint64, ids []uint64, index map[uint64]discourse.PostMetadata) (int, error) {
	batches := chunk(ids, BatchSize)
	for i, batch := range batches {
		if i > 0 {
			f.sleep(f.Pause)
		}
		posts, err := f.Source.FetchPosts(ctx, topicID, batch)
		if err != nil {
			return i, fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
		}
		for _, p := range posts {
			index[p.ID] = p
		}
	}
	return len(batches), nil
}

func (f *Fetcher) logf(format string, args ...any) {
	if f.Log == nil {
		return
	}
	fmt.Fprintf(f.Log, format, args...)
}
