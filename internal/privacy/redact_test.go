package privacy

import (
	"testing"

	"github.com/ppiankov/threadpull/internal/cache"
)

func TestNewRedactor_Invalid(t *testing.T) {
	if _, err := NewRedactor([]string{`[invalid`}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		in       string
		want     string
	}{
		{"single", []string{`(?i)token`}, "My API Token is abc123", "My API [REDACTED] is abc123"},
		{"multiple", []string{`\d{3}-\d{4}`, `(?i)password`}, "call 555-1234, password hunter2", "call [REDACTED], [REDACTED] hunter2"},
		{"no match", []string{`secret`}, "nothing here", "nothing here"},
		{"no patterns", nil, "unchanged", "unchanged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRedactor(tt.patterns)
			if err != nil {
				t.Fatalf("new redactor: %v", err)
			}
			if got := r.Text(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNilRedactor(t *testing.T) {
	var r *Redactor
	if got := r.Text("keep me"); got != "keep me" {
		t.Errorf("got %q", got)
	}
}

func TestPosts_DoesNotMutateInput(t *testing.T) {
	r, err := NewRedactor([]string{`ghp_[A-Za-z0-9]+`})
	if err != nil {
		t.Fatalf("new redactor: %v", err)
	}
	in := []cache.Post{{PostID: 1, Raw: "use ghp_abc123 to push"}, {PostID: 2, Raw: "clean"}}

	out := r.Posts(in)
	if out[0].Raw != "use [REDACTED] to push" {
		t.Errorf("out[0].Raw = %q", out[0].Raw)
	}
	if out[1].Raw != "clean" {
		t.Errorf("out[1].Raw = %q", out[1].Raw)
	}
	if in[0].Raw != "use ghp_abc123 to push" {
		t.Errorf("input mutated: %q", in[0].Raw)
	}
}
