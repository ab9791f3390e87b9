// Package discourse is a minimal client for the public Discourse JSON API.
package discourse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "threadpull/1.0"
)

// PostMetadata is the subset of a Discourse post needed to fetch and label it.
type PostMetadata struct {
	ID         uint64    `json:"id"`
	PostNumber uint64    `json:"post_number"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
}

// PostStream carries the full ordered id list and the inline posts
// (usually the first ~20) bundled with a topic response.
type PostStream struct {
	Stream []uint64       `json:"stream"`
	Posts  []PostMetadata `json:"posts"`
}

// Topic is the parsed /t/{id}.json response.
type Topic struct {
	ID         uint64     `json:"id"`
	Title      string     `json:"title"`
	PostStream PostStream `json:"post_stream"`
}

// Client talks to one Discourse server.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewClient creates a client for the server at baseURL (scheme://host[:port]).
func NewClient(baseURL string, timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// FetchTopic returns topic metadata including the full post stream.
func (c *Client) FetchTopic(ctx context.Context, topicID uint64) (*Topic, error) {
	u := fmt.Sprintf("%s/t/%d.json", c.baseURL, topicID)

	var topic Topic
	if err := c.getJSON(ctx, u, &topic); err != nil {
		return nil, fmt.Errorf("fetch topic %d: %w", topicID, err)
	}
	return &topic, nil
}

// FetchPosts returns metadata for one batch of post ids. Discourse accepts
// about 20 ids per request; callers are responsible for chunking.
func (c *Client) FetchPosts(ctx context.Context, topicID uint64, postIDs []uint64) ([]PostMetadata, error) {
	q := url.Values{}
	for _, id := range postIDs {
		q.Add("post_ids[]", strconv.FormatUint(id, 10))
	}
	u := fmt.Sprintf("%s/t/%d/posts.json?%s", c.baseURL, topicID, q.Encode())

	var body struct {
		PostStream *struct {
			Posts []PostMetadata `json:"posts"`
		} `json:"post_stream"`
	}
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, fmt.Errorf("batch-fetch posts: %w", err)
	}
	if body.PostStream == nil {
		return nil, fmt.Errorf("batch-fetch posts: no post_stream.posts in response")
	}
	return body.PostStream.Posts, nil
}

// FetchRaw returns the raw Markdown of the post with the given post number.
func (c *Client) FetchRaw(ctx context.Context, topicID, postNumber uint64) (string, error) {
	u := fmt.Sprintf("%s/raw/%d/%d", c.baseURL, topicID, postNumber)

	resp, err := c.get(ctx, u, "text/plain")
	if err != nil {
		return "", fmt.Errorf("fetch raw post #%d: %w", postNumber, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read raw post #%d: %w", postNumber, err)
	}
	return string(data), nil
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	resp, err := c.get(ctx, u, "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// get issues a GET and returns the response only for 2xx statuses.
func (c *Client) get(ctx context.Context, u, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp, nil
}
