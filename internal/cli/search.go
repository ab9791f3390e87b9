package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/threadpull/internal/search"
	"github.com/spf13/cobra"
)

var (
	searchLimit   int
	searchBackend string
)

var searchCmd = &cobra.Command{
	Use:   "search <thread-url> <query>",
	Short: "Full-text search over a thread's cached posts",
	Long: "Search the locally cached posts of a thread. Run fetch first; search never touches the network.\n" +
		"The query accepts bleve query-string syntax: \"exact phrase\", +must, -not, Username:alice, fuzzy~.",
	Args: cobra.MinimumNArgs(2),
	RunE: searchAction,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVar(&searchBackend, "backend", "", "cache backend: file, sqlite, bolt")
	rootCmd.AddCommand(searchCmd)
}

func searchAction(_ *cobra.Command, args []string) error {
	_, ref, st, err := openThread(args[0], searchBackend, true)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	posts, err := st.List(context.Background())
	if err != nil {
		return fmt.Errorf("list cache: %w", err)
	}
	if len(posts) == 0 {
		return fmt.Errorf("no cached posts for %s topic %d (run fetch first)", ref.Domain, ref.ID)
	}

	idx, err := search.Build(posts)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	query := strings.Join(args[1:], " ")
	color := stdoutColor()
	hits, err := idx.Search(query, searchLimit, color)
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Printf("No posts match %q.\n", query)
		return nil
	}

	fmt.Printf("%d of %d posts match %q\n\n", len(hits), len(posts), query)
	for _, h := range hits {
		fmt.Printf("#%d by @%s (%s)  score %.2f\n", h.Post.PostNumber, h.Post.Username,
			h.Post.CreatedAt.UTC().Format("2006-01-02"), h.Score)
		if !color {
			fmt.Printf("    %s\n", snippet(h.Post.Raw, 120))
			continue
		}
		for _, frag := range h.Fragments {
			fmt.Printf("    %s\n", strings.ReplaceAll(strings.TrimSpace(frag), "\n", " "))
		}
	}
	return nil
}

// snippet flattens s to one line and cuts it to at most n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "..."
		}
		count++
	}
	return s
}
