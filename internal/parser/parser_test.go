package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Datasets\ndescription: Public data\n---\n# Heading\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Datasets" {
		t.Errorf("title = %q, want %q", r.Title, "Datasets")
	}
	if r.String("description") != "Public data" {
		t.Errorf("description = %q", r.String("description"))
	}
	if r.Body != "# Heading\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
	if r.String("title") != "" {
		t.Error("String on nil frontmatter should be empty")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if r.Body != string(input) {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	input := []byte("---\ntitle: x\nno closing\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	if r.Frontmatter != nil || r.Title != "" {
		t.Errorf("result = %+v", r)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	title := deriveTitle(map[string]any{"title": "FM"}, "# H1\n")
	if title != "FM" {
		t.Errorf("title = %q, want FM", title)
	}
}
