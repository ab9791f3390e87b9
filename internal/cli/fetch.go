package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/threadpull/internal/discourse"
	"github.com/ppiankov/threadpull/internal/fetch"
	"github.com/ppiankov/threadpull/internal/privacy"
	"github.com/ppiankov/threadpull/internal/render"
	"github.com/spf13/cobra"
)

var (
	fetchOutput    string
	fetchCacheDays int
	fetchFormat    string
	fetchBackend   string
	fetchVerbose   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <thread-url>",
	Short: "Download every post of a thread as one document",
	Example: "  threadpull fetch https://discourse.nixos.org/t/some-topic/12345\n" +
		"  threadpull fetch -o thread.md -d 7 https://discuss.example.com/t/12345",
	Args: cobra.ExactArgs(1),
	RunE: fetchAction,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "output file (default: stdout)")
	fetchCmd.Flags().IntVarP(&fetchCacheDays, "cache-days", "d", -1, "trust cached posts created more than this many days ago (-1: config value, default 4)")
	fetchCmd.Flags().StringVar(&fetchFormat, "format", "", "output format: markdown, json")
	fetchCmd.Flags().StringVar(&fetchBackend, "backend", "", "cache backend: file, sqlite, bolt")
	fetchCmd.Flags().BoolVarP(&fetchVerbose, "verbose", "v", false, "print progress to stderr")
	rootCmd.AddCommand(fetchCmd)
}

func fetchAction(cmd *cobra.Command, args []string) error {
	if fetchCacheDays < -1 {
		return fmt.Errorf("--cache-days: must not be negative (got %d)", fetchCacheDays)
	}

	cfg, ref, st, err := openThread(args[0], fetchBackend, false)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if fetchCacheDays >= 0 {
		cfg.Cache.Days = fetchCacheDays
	}
	format := cfg.Output.Format
	if fetchFormat != "" {
		format = fetchFormat
	}

	var formatter render.Formatter
	switch format {
	case "markdown", "md":
		formatter = render.NewMarkdown()
	case "json":
		formatter = render.NewJSON()
	default:
		return fmt.Errorf("unknown format %q (want markdown or json)", format)
	}

	var redactor *privacy.Redactor
	if cfg.Output.Redact.Enabled && len(cfg.Output.Redact.Patterns) > 0 {
		redactor, err = privacy.NewRedactor(cfg.Output.Redact.Patterns)
		if err != nil {
			return err
		}
	}

	color := stderrColor()
	var logw io.Writer
	if fetchVerbose {
		logw = os.Stderr
		fmt.Fprintln(logw, dim(fmt.Sprintf("Base URL: %s", ref.BaseURL), color))
		fmt.Fprintln(logw, dim(fmt.Sprintf("Topic ID: %d", ref.ID), color))
		fmt.Fprintln(logw, dim(fmt.Sprintf("Cache: %s (%s)", cfg.Cache.Dir, cfg.Cache.Backend), color))
	}

	client := discourse.NewClient(ref.BaseURL, cfg.HTTP.Timeout.Duration, cfg.HTTP.UserAgent)
	f := fetch.New(client, st)
	f.Pause = cfg.HTTP.Pause.Duration
	f.Log = logw

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	now := nowFunc()
	res, err := f.Run(ctx, ref.ID, cfg.Threshold(now))
	if err != nil {
		return fmt.Errorf("fetch thread: %w", err)
	}

	posts := res.Posts
	if redactor != nil {
		posts = redactor.Posts(posts)
	}

	var buf bytes.Buffer
	err = formatter.Format(&buf, render.Input{
		Title:     res.Title,
		SourceURL: args[0],
		FetchedAt: now,
		Posts:     posts,
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if fetchVerbose {
		fmt.Fprintln(os.Stderr, bold(fmt.Sprintf("%d posts (%d cached, %d fetched, %d metadata batches)",
			len(res.Posts), res.Stats.Cached, res.Stats.Fetched, res.Stats.Batches), color))
	}

	if fetchOutput == "" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(fetchOutput, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output to %s: %w", fetchOutput, err)
	}
	fmt.Fprintf(os.Stderr, "Output written to %s\n", fetchOutput)
	return nil
}
