// Package privacy masks sensitive text in rendered post bodies.
package privacy

import (
	"fmt"
	"regexp"

	"github.com/ppiankov/threadpull/internal/cache"
)

const redactedPlaceholder = "[REDACTED]"

// Redactor replaces every match of its patterns with [REDACTED].
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor compiles patterns. An invalid pattern is an error.
func NewRedactor(patterns []string) (*Redactor, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile redact pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Redactor{patterns: compiled}, nil
}

// Text returns s with all matches masked.
func (r *Redactor) Text(s string) string {
	if r == nil {
		return s
	}
	for _, re := range r.patterns {
		s = re.ReplaceAllString(s, redactedPlaceholder)
	}
	return s
}

// Posts returns copies of posts with their raw bodies masked. The input
// slice, and therefore the cache, is left untouched.
func (r *Redactor) Posts(posts []cache.Post) []cache.Post {
	out := make([]cache.Post, len(posts))
	for i, p := range posts {
		p.Raw = r.Text(p.Raw)
		out[i] = p
	}
	return out
}
