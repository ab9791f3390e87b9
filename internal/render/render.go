// Package render turns a resolved thread into a single flat document.
package render

import (
	"io"
	"time"

	"github.com/ppiankov/threadpull/internal/cache"
)

// Input is everything a formatter needs to render one thread.
type Input struct {
	Title     string
	SourceURL string
	FetchedAt time.Time
	Posts     []cache.Post // in thread order
}

// Formatter writes a rendered thread to w.
type Formatter interface {
	Format(w io.Writer, input Input) error
}

const timeLayout = "2006-01-02 15:04 UTC"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
