package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ppiankov/threadpull/internal/cache"
	"github.com/spf13/cobra"
)

var (
	cacheBackend string
	cacheList    bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache <thread-url>",
	Short: "Show what is cached for a thread",
	Args:  cobra.ExactArgs(1),
	RunE:  cacheAction,
}

func init() {
	cacheCmd.Flags().StringVar(&cacheBackend, "backend", "", "cache backend: file, sqlite, bolt")
	cacheCmd.Flags().BoolVarP(&cacheList, "list", "l", false, "list every cached post")
	rootCmd.AddCommand(cacheCmd)
}

func cacheAction(_ *cobra.Command, args []string) error {
	cfg, ref, st, err := openThread(args[0], cacheBackend, true)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	posts, err := st.List(context.Background())
	if err != nil {
		return fmt.Errorf("list cache: %w", err)
	}

	now := nowFunc()
	threshold := cfg.Threshold(now)
	s := summarizeCache(posts, threshold)

	fmt.Printf("%s topic %d (%s cache at %s)\n", ref.Domain, ref.ID, cfg.Cache.Backend, cfg.Cache.Dir)
	if s.Total == 0 {
		fmt.Println("No cached posts.")
		return nil
	}
	fmt.Printf("%d posts cached, %s of raw content\n", s.Total, humanize.Bytes(s.RawBytes))
	fmt.Printf("%d trusted (created before %s), %d will be re-fetched\n",
		s.Trusted, threshold.UTC().Format("2006-01-02"), s.Total-s.Trusted)
	fmt.Printf("last fetched %s\n", humanize.RelTime(s.LastFetched, now, "ago", "from now"))

	if cacheList {
		fmt.Println()
		for _, p := range posts {
			mark := " "
			if !p.OlderThan(threshold) {
				mark = "*"
			}
			fmt.Printf("%s #%-5d id=%-8d @%-20s %s  %s\n", mark, p.PostNumber, p.PostID, p.Username,
				p.CreatedAt.UTC().Format("2006-01-02"), humanize.Bytes(uint64(len(p.Raw))))
		}
	}
	return nil
}

type cacheSummary struct {
	Total       int
	Trusted     int
	RawBytes    uint64
	LastFetched time.Time
}

func summarizeCache(posts []cache.Post, threshold time.Time) cacheSummary {
	var s cacheSummary
	for _, p := range posts {
		s.Total++
		s.RawBytes += uint64(len(p.Raw))
		if p.OlderThan(threshold) {
			s.Trusted++
		}
		if p.FetchedAt.After(s.LastFetched) {
			s.LastFetched = p.FetchedAt
		}
	}
	return s
}
