package discourse

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrNotTopicURL is returned when a URL does not point at a Discourse topic.
var ErrNotTopicURL = errors.New("not a discourse topic url (expected /t/...)")

// TopicRef identifies a topic on a Discourse server.
type TopicRef struct {
	BaseURL string // scheme://host[:port]
	Domain  string // host without port, used to scope the cache
	ID      uint64
}

// ParseTopicURL extracts the server and topic id from a topic URL.
//
// Accepted forms:
//
//	https://discuss.example.com/t/topic-slug/12345
//	https://discuss.example.com/t/topic-slug/12345/42
//	https://discuss.example.com/t/12345
func ParseTopicURL(raw string) (TopicRef, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return TopicRef{}, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return TopicRef{}, fmt.Errorf("invalid url %q: missing scheme or host", raw)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 || segments[0] != "t" {
		return TopicRef{}, ErrNotTopicURL
	}

	// The topic id is the first numeric segment after /t/; a trailing
	// number after it is the post number and is ignored.
	var id uint64
	found := false
	for _, seg := range segments[1:] {
		n, err := strconv.ParseUint(seg, 10, 64)
		if err == nil {
			id = n
			found = true
			break
		}
	}
	if !found {
		return TopicRef{}, fmt.Errorf("could not find topic id in %q", raw)
	}

	return TopicRef{
		BaseURL: u.Scheme + "://" + u.Host,
		Domain:  u.Hostname(),
		ID:      id,
	}, nil
}
