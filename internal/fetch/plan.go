package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/threadpull/internal/cache"
	"github.com/ppiankov/threadpull/internal/discourse"
)

// Plan returns, in stream order, the post ids whose metadata must be
// batch-fetched. An id is skipped when its metadata is already in index,
// or when the store holds a record for it created before threshold.
//
// Staleness is judged on the post's creation time, not on when it was
// cached: recent posts are still likely to be edited.
func Plan(ctx context.Context, ids []uint64, index map[uint64]discourse.PostMetadata, store cache.Store, threshold time.Time) ([]uint64, error) {
	var need []uint64
	for _, id := range ids {
		if _, ok := index[id]; ok {
			continue
		}
		cached, err := store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("check cache for post %d: %w", id, err)
		}
		if cached != nil && cached.OlderThan(threshold) {
			continue
		}
		need = append(need, id)
	}
	return need, nil
}

// chunk splits ids into consecutive slices of at most size elements.
func chunk(ids []uint64, size int) [][]uint64 {
	if size <= 0 {
		size = len(ids)
	}
	var out [][]uint64
	for len(ids) > 0 {
		n := min(size, len(ids))
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}
