package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/ppiankov/threadpull/internal/cache"
	"github.com/ppiankov/threadpull/internal/config"
	"github.com/ppiankov/threadpull/internal/discourse"
)

// nowFunc allows tests to pin the clock used for thresholds and headers.
var nowFunc = time.Now

// openThread loads config, parses the topic URL and opens its cache scope.
// backend, when non-empty, overrides the configured cache backend. A
// read-only open never creates the scope on disk.
func openThread(rawURL, backend string, readOnly bool) (*config.Config, discourse.TopicRef, cache.Store, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, discourse.TopicRef{}, nil, fmt.Errorf("load config: %w", err)
	}
	if backend != "" {
		cfg.Cache.Backend = backend
	}

	ref, err := discourse.ParseTopicURL(rawURL)
	if err != nil {
		return nil, discourse.TopicRef{}, nil, fmt.Errorf("parse thread url: %w", err)
	}

	st, err := cache.Open(cache.Options{
		Backend:  cfg.Cache.Backend,
		Root:     cfg.Cache.Dir,
		Domain:   ref.Domain,
		TopicID:  ref.ID,
		ReadOnly: readOnly,
	})
	if err != nil {
		return nil, discourse.TopicRef{}, nil, fmt.Errorf("open cache: %w", err)
	}
	return cfg, ref, st, nil
}

// stderrColor reports whether stderr is a terminal that can take ANSI codes
// and --no-color is unset.
func stderrColor() bool {
	if noColor {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// stdoutColor reports whether stdout is a terminal.
func stdoutColor() bool {
	if noColor {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func dim(s string, color bool) string {
	if !color {
		return s
	}
	return "\033[2m" + s + "\033[0m"
}

func bold(s string, color bool) string {
	if !color {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}
