// Package search builds a throwaway full-text index over a thread's cached posts.
package search

import (
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	_ "github.com/blevesearch/bleve/v2/search/highlight/highlighter/ansi"
	"github.com/ppiankov/threadpull/internal/cache"
)

// Index is an in-memory bleve index of one thread.
type Index struct {
	index bleve.Index
	posts map[string]cache.Post
}

type indexedPost struct {
	Username string
	Raw      string
}

// Hit is one matching post.
type Hit struct {
	Post      cache.Post
	Score     float64
	Fragments []string
}

// Build indexes posts in memory.
func Build(posts []cache.Post) (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	byID := make(map[string]cache.Post, len(posts))
	batch := idx.NewBatch()
	for _, p := range posts {
		id := strconv.FormatUint(p.PostID, 10)
		byID[id] = p
		if err := batch.Index(id, indexedPost{Username: p.Username, Raw: p.Raw}); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("index post %s: %w", id, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	return &Index{index: idx, posts: byID}, nil
}

func buildMapping() mapping.IndexMapping {
	raw := bleve.NewTextFieldMapping()
	raw.Analyzer = "en"

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("Raw", raw)
	doc.AddFieldMappingsAt("Username", bleve.NewTextFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Search runs a query-string query (quotes, +/-, field:value, fuzzy~) and
// returns up to limit hits, best first. With highlight set, each hit carries
// ANSI-highlighted fragments of the matching body.
func (i *Index) Search(query string, limit int, highlight bool) ([]Hit, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)
	if highlight {
		req.Highlight = bleve.NewHighlightWithStyle("ansi")
		req.Highlight.AddField("Raw")
	}

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		p, ok := i.posts[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Post: p, Score: h.Score, Fragments: h.Fragments["Raw"]})
	}
	return hits, nil
}

// Count returns the number of indexed posts.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

func (i *Index) Close() error {
	return i.index.Close()
}
