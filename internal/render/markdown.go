package render

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownFormatter renders a thread as one Markdown document suited for
// pasting into an LLM prompt.
type MarkdownFormatter struct{}

// NewMarkdown creates a Markdown formatter.
func NewMarkdown() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format writes a header followed by one section per post, each closed by a rule.
func (f *MarkdownFormatter) Format(w io.Writer, input Input) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", input.Title)
	fmt.Fprintf(&b, "- **Source**: %s\n", input.SourceURL)
	fmt.Fprintf(&b, "- **Fetched**: %s\n", formatTime(input.FetchedAt))
	fmt.Fprintf(&b, "- **Posts**: %d\n", len(input.Posts))
	b.WriteString("\n---\n\n")

	for _, p := range input.Posts {
		fmt.Fprintf(&b, "## Post #%d by @%s (%s)\n\n", p.PostNumber, p.Username, formatTime(p.CreatedAt))
		b.WriteString(p.Raw)
		if !strings.HasSuffix(p.Raw, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n---\n\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
