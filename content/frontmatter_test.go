package content

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEntry(t *testing.T, dir, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "index.mdx")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	return path
}

func TestParseFileArticle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "hiring-basics")
	path := writeEntry(t, dir, `---
title: "Hiring Basics"
author: Jane Doe
date: 2024-01-05
excerpt: Brief summary.
image: ./images/cover.png
tags: ["hr", "compliance"]
isFeatured: true
---

Body text.

---

More body after a rule.
`)

	e, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if e.Title != "Hiring Basics" {
		t.Errorf("Title = %q, want %q", e.Title, "Hiring Basics")
	}
	if e.Author != "Jane Doe" {
		t.Errorf("Author = %q, want %q", e.Author, "Jane Doe")
	}
	if e.Excerpt != "Brief summary." {
		t.Errorf("Excerpt = %q", e.Excerpt)
	}
	if e.Date == nil || e.Date.Format("2006-01-02") != "2024-01-05" {
		t.Errorf("Date = %v, want 2024-01-05", e.Date)
	}
	if len(e.Tags) != 2 || e.Tags[0] != "hr" || e.Tags[1] != "compliance" {
		t.Errorf("Tags = %v", e.Tags)
	}
	if e.Image.Kind != RefExplicit || e.Image.Path != "./images/cover.png" {
		t.Errorf("Image = %v", e.Image)
	}
	if !e.Featured {
		t.Error("Featured should be true")
	}
	if e.Dir != dir {
		t.Errorf("Dir = %q, want %q", e.Dir, dir)
	}
	if e.RawFrontMatter == "" {
		t.Error("RawFrontMatter should be kept")
	}
}

func TestParseResourceFields(t *testing.T) {
	e, err := Parse(`title: Handbook Template
provider: KPHR
description: A ready-to-use employee handbook.
image:
  src: /_astro/handbook.Bx9a.png
video:
  url: https://youtu.be/dQw4w9WgXcQ
faq:
  - question: Is it free?
    answer: Yes.
`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if e.Author != "KPHR" {
		t.Errorf("Author = %q, want provider", e.Author)
	}
	if e.Excerpt != "A ready-to-use employee handbook." {
		t.Errorf("Excerpt = %q, want description", e.Excerpt)
	}
	if e.Date != nil {
		t.Errorf("Date = %v, want nil", e.Date)
	}
	if e.Image.Kind != RefProcessed {
		t.Errorf("Image kind = %v, want processed", e.Image)
	}
	if e.Video == nil || e.Video.URL == "" {
		t.Fatal("Video should be decoded")
	}
	if len(e.FAQ) != 1 || e.FAQ[0].Answer != "Yes." {
		t.Errorf("FAQ = %v", e.FAQ)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing title", "author: someone\n"},
		{"bad date", "title: x\ndate: yesterday\n"},
		{"bad image", "title: x\nimage: [a, b]\n"},
	}
	for _, tt := range tests {
		if _, err := Parse(tt.raw); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestParseFileWithoutFrontMatter(t *testing.T) {
	path := writeEntry(t, t.TempDir(), "# Just markdown\n")
	if _, err := ParseFile(path); err == nil {
		t.Fatal("expected error for file without front-matter")
	}
}

func TestNewImageRef(t *testing.T) {
	tests := []struct {
		in   string
		kind RefKind
	}{
		{"", RefAbsent},
		{"   ", RefAbsent},
		{"./images/x.png", RefExplicit},
		{"/x.png", RefExplicit},
		{"main.png", RefExplicit},
		{"/_astro/main.C3f1.png", RefProcessed},
	}
	for _, tt := range tests {
		if got := NewImageRef(tt.in); got.Kind != tt.kind {
			t.Errorf("NewImageRef(%q).Kind = %v, want %v", tt.in, got.Kind, tt.kind)
		}
	}
}

func TestRecoverImage(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"title: x\nimage: './images/a.png'\n", "./images/a.png", true},
		{"title: x\nimage: \"/hero.jpg\"\n", "/hero.jpg", true},
		{"title: x\nimage: main.png\n", "main.png", true},
		{"title: x\n", "", false},
		{"title: x\nimage:\n  src: a.png\n", "", false},
	}
	for _, tt := range tests {
		got, ok := RecoverImage(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("RecoverImage(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSplitFrontMatter(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
		err  bool
	}{
		{"dashes inside a value", "---\ntitle: \"Pros --- and cons of remote work\"\n---\nbody\n", "title: \"Pros --- and cons of remote work\"", false},
		{"dashes opening a line", "---\nexcerpt: |\n  ---not a fence\ntitle: x\n---\n", "excerpt: |\n  ---not a fence\ntitle: x", false},
		{"crlf", "---\r\ntitle: x\r\n---\r\nbody", "title: x", false},
		{"no trailing newline", "---\ntitle: x\n---", "title: x", false},
		{"empty block", "---\n---\nbody", "", false},
		{"rule in body", "---\ntitle: x\n---\n\n---\n\nmore\n", "title: x", false},
		{"unterminated", "---\ntitle: x\n", "", true},
		{"no block", "# heading\n---\n", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitFrontMatter([]byte(tt.data))
			if tt.err {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("splitFrontMatter: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFileTitleWithDashes(t *testing.T) {
	path := writeEntry(t, t.TempDir(), "---\ntitle: \"Pros --- and cons of remote work\"\n---\n")
	e, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if e.Title != "Pros --- and cons of remote work" {
		t.Errorf("Title = %q", e.Title)
	}
}
