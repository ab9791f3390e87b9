package render

import (
	"encoding/json"
	"io"
	"time"
)

type jsonThread struct {
	Title     string     `json:"title"`
	Source    string     `json:"source"`
	FetchedAt string     `json:"fetched_at"`
	Count     int        `json:"count"`
	Posts     []jsonPost `json:"posts"`
}

type jsonPost struct {
	PostNumber uint64 `json:"post_number"`
	PostID     uint64 `json:"post_id"`
	Username   string `json:"username"`
	CreatedAt  string `json:"created_at"`
	Raw        string `json:"raw"`
}

// JSONFormatter renders a thread as a JSON document.
type JSONFormatter struct{}

// NewJSON creates a JSON formatter.
func NewJSON() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) Format(w io.Writer, input Input) error {
	out := jsonThread{
		Title:     input.Title,
		Source:    input.SourceURL,
		FetchedAt: input.FetchedAt.UTC().Format(time.RFC3339),
		Count:     len(input.Posts),
		Posts:     make([]jsonPost, 0, len(input.Posts)),
	}
	for _, p := range input.Posts {
		out.Posts = append(out.Posts, jsonPost{
			PostNumber: p.PostNumber,
			PostID:     p.PostID,
			Username:   p.Username,
			CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339),
			Raw:        p.Raw,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
