package discourse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseTopicURL(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		base   string
		domain string
		id     uint64
	}{
		{"with slug", "https://discuss.example.com/t/my-topic/12345", "https://discuss.example.com", "discuss.example.com", 12345},
		{"with post number", "https://discuss.example.com/t/my-topic/12345/42", "https://discuss.example.com", "discuss.example.com", 12345},
		{"no slug", "https://discuss.example.com/t/12345", "https://discuss.example.com", "discuss.example.com", 12345},
		{"with port", "http://localhost:3000/t/slug/7", "http://localhost:3000", "localhost", 7},
		{"trailing slash", "https://forum.example.org/t/slug/99/", "https://forum.example.org", "forum.example.org", 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseTopicURL(tt.in)
			if err != nil {
				t.Fatalf("ParseTopicURL: %v", err)
			}
			if ref.BaseURL != tt.base {
				t.Errorf("base = %q, want %q", ref.BaseURL, tt.base)
			}
			if ref.Domain != tt.domain {
				t.Errorf("domain = %q, want %q", ref.Domain, tt.domain)
			}
			if ref.ID != tt.id {
				t.Errorf("id = %d, want %d", ref.ID, tt.id)
			}
		})
	}
}

func TestParseTopicURL_Invalid(t *testing.T) {
	t.Run("not a topic", func(t *testing.T) {
		_, err := ParseTopicURL("https://example.com/not-discourse")
		if !errors.Is(err, ErrNotTopicURL) {
			t.Fatalf("err = %v, want ErrNotTopicURL", err)
		}
	})

	t.Run("no id", func(t *testing.T) {
		if _, err := ParseTopicURL("https://example.com/t/slug-only"); err == nil {
			t.Fatal("expected error for missing topic id")
		}
	})

	t.Run("no scheme", func(t *testing.T) {
		if _, err := ParseTopicURL("example.com/t/1"); err == nil {
			t.Fatal("expected error for missing scheme")
		}
	})
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	created := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/t/42.json":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(Topic{
				ID:    42,
				Title: "Flakes and you",
				PostStream: PostStream{
					Stream: []uint64{101, 102, 103},
					Posts: []PostMetadata{
						{ID: 101, PostNumber: 1, Username: "alice", CreatedAt: created},
					},
				},
			})
		case r.URL.Path == "/t/42/posts.json":
			var posts []PostMetadata
			for i, id := range r.URL.Query()["post_ids[]"] {
				var n uint64
				_, _ = fmt.Sscan(id, &n)
				posts = append(posts, PostMetadata{ID: n, PostNumber: uint64(i + 2), Username: "bob", CreatedAt: created})
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"post_stream": map[string]any{"posts": posts},
			})
		case strings.HasPrefix(r.URL.Path, "/raw/42/"):
			fmt.Fprintf(w, "raw body of #%s", strings.TrimPrefix(r.URL.Path, "/raw/42/"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestClientFetchTopic(t *testing.T) {
	ts := newTestServer(t)
	c := NewClient(ts.URL, 0, "")

	topic, err := c.FetchTopic(context.Background(), 42)
	if err != nil {
		t.Fatalf("FetchTopic: %v", err)
	}
	if topic.Title != "Flakes and you" {
		t.Errorf("title = %q", topic.Title)
	}
	if len(topic.PostStream.Stream) != 3 || topic.PostStream.Stream[2] != 103 {
		t.Errorf("stream = %v", topic.PostStream.Stream)
	}
	if len(topic.PostStream.Posts) != 1 || topic.PostStream.Posts[0].Username != "alice" {
		t.Errorf("inline posts = %+v", topic.PostStream.Posts)
	}
}

func TestClientFetchPosts(t *testing.T) {
	ts := newTestServer(t)
	c := NewClient(ts.URL, 0, "")

	posts, err := c.FetchPosts(context.Background(), 42, []uint64{102, 103})
	if err != nil {
		t.Fatalf("FetchPosts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if posts[0].ID != 102 || posts[1].ID != 103 {
		t.Errorf("ids = %d, %d", posts[0].ID, posts[1].ID)
	}
}

func TestClientFetchPosts_MissingStream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":["nope"]}`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, 0, "")
	if _, err := c.FetchPosts(context.Background(), 42, []uint64{1}); err == nil {
		t.Fatal("expected error for response without post_stream")
	}
}

func TestClientFetchRaw(t *testing.T) {
	ts := newTestServer(t)
	c := NewClient(ts.URL, 0, "")

	raw, err := c.FetchRaw(context.Background(), 42, 3)
	if err != nil {
		t.Fatalf("FetchRaw: %v", err)
	}
	if raw != "raw body of #3" {
		t.Errorf("raw = %q", raw)
	}
}

func TestClientHTTPError(t *testing.T) {
	ts := newTestServer(t)
	c := NewClient(ts.URL, 0, "")

	_, err := c.FetchTopic(context.Background(), 7)
	if err == nil {
		t.Fatal("expected error for unknown topic")
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("error = %v, want HTTP 404", err)
	}
}

func TestClientUserAgent(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		fmt.Fprint(w, "ok")
	}))
	defer ts.Close()

	c := NewClient(ts.URL, time.Second, "custom/2.0")
	if _, err := c.FetchRaw(context.Background(), 1, 1); err != nil {
		t.Fatalf("FetchRaw: %v", err)
	}
	if got != "custom/2.0" {
		t.Errorf("user agent = %q, want custom/2.0", got)
	}
}
