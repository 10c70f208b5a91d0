package ogengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kphr/ogengine/content"
)

func TestCardRoutes(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, defaultFiles(t))

	tests := []struct {
		name   string
		target string
	}{
		{"article", "/og/articles/typescript-generics.png"},
		{"article with photo", "/og/articles/with-photo.png"},
		{"nested id", "/og/articles/guides/intro.png"},
		{"resource", "/og/resources/handy-tool.png"},
		{"without extension", "/og/articles/typescript-generics"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(a, http.MethodGet, tt.target, nil)
			assertCard(t, rec)
			if cc := rec.Header().Get("Cache-Control"); cc != immutableCache {
				t.Errorf("Cache-Control = %q", cc)
			}
			if rec.Header().Get("Content-Length") == "" || rec.Header().Get("ETag") == "" {
				t.Error("missing Content-Length or ETag")
			}
		})
	}
}

func TestCardErrors(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, defaultFiles(t))

	tests := []struct {
		name   string
		method string
		target string
		code   int
		body   string
	}{
		{"unknown article", http.MethodGet, "/og/articles/does-not-exist.png", http.StatusNotFound, "Not found"},
		{"unknown resource", http.MethodGet, "/og/resources/does-not-exist.png", http.StatusNotFound, "Not found"},
		{"article in wrong collection", http.MethodGet, "/og/resources/typescript-generics.png", http.StatusNotFound, "Not found"},
		{"missing id", http.MethodGet, "/og/articles/", http.StatusBadRequest, "Missing id"},
		{"bare articles", http.MethodGet, "/og/articles", http.StatusBadRequest, "Missing id"},
		{"bare resources", http.MethodGet, "/og/resources", http.StatusBadRequest, "Missing id"},
		{"head bare articles", http.MethodHead, "/og/articles", http.StatusBadRequest, ""},
		{"only extension", http.MethodGet, "/og/resources/.png", http.StatusBadRequest, "Missing id"},
		{"unparsable entry", http.MethodGet, "/og/articles/broken.png", http.StatusNotFound, "Not found"},
		{"head unknown", http.MethodHead, "/og/articles/nope.png", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(a, tt.method, tt.target, nil)
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d", rec.Code, tt.code)
			}
			if got := rec.Body.String(); got != tt.body {
				t.Errorf("body = %q, want %q", got, tt.body)
			}
			if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Errorf("error response Cache-Control = %q, want no-cache", cc)
			}
		})
	}
}

func TestCardHeadAndConditional(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, defaultFiles(t))
	const target = "/og/articles/typescript-generics.png"

	get := do(a, http.MethodGet, target, nil)
	assertCard(t, get)

	head := do(a, http.MethodHead, target, nil)
	if head.Code != http.StatusOK {
		t.Fatalf("HEAD status = %d", head.Code)
	}
	if head.Body.Len() != 0 {
		t.Errorf("HEAD wrote %d body bytes", head.Body.Len())
	}
	if head.Header().Get("Content-Length") != get.Header().Get("Content-Length") {
		t.Errorf("HEAD Content-Length %q != GET %q", head.Header().Get("Content-Length"), get.Header().Get("Content-Length"))
	}

	cond := do(a, http.MethodGet, target, http.Header{"If-None-Match": {get.Header().Get("ETag")}})
	if cond.Code != http.StatusNotModified {
		t.Errorf("conditional status = %d, want 304", cond.Code)
	}
	if cond.Body.Len() != 0 {
		t.Error("304 must not carry a body")
	}
}

func TestCardIdempotent(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, defaultFiles(t))
	const target = "/og/articles/with-photo.png"

	first := do(a, http.MethodGet, target, nil)
	second := do(a, http.MethodGet, target, nil)
	assertCard(t, first)
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Error("two renders of the same entry differ")
	}
	if first.Header().Get("ETag") != second.Header().Get("ETag") {
		t.Error("ETag changed between renders")
	}
}

func TestCardDropsOversizedBackground(t *testing.T) {
	files := defaultFiles(t)
	files["articles/with-photo/images/main.png"] = noisePNG(t, 300, 200)
	a, logs := newTestApp(t, SiteConfig{MaxBackgroundBytes: 4 * 1024}, files)

	rec := do(a, http.MethodGet, "/og/articles/with-photo.png", nil)
	assertCard(t, rec)
	if !strings.Contains(logs.String(), "too large") {
		t.Errorf("expected the dropped background to be logged, got %q", logs.String())
	}
}

func TestCardUndecodableBackground(t *testing.T) {
	files := defaultFiles(t)
	files["articles/with-photo/images/main.png"] = []byte("not really a png")
	a, logs := newTestApp(t, SiteConfig{}, files)

	assertCard(t, do(a, http.MethodGet, "/og/articles/with-photo.png", nil))
	if !strings.Contains(logs.String(), "dropped") {
		t.Errorf("expected a warning, got %q", logs.String())
	}
}

func TestCardSVG(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, defaultFiles(t))
	rec := do(a, http.MethodGet, "/og/articles/typescript-generics.svg", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "<svg") {
		t.Errorf("body does not start with <svg: %.60q", rec.Body.String())
	}
}

func TestSourceImage(t *testing.T) {
	files := defaultFiles(t)
	files["articles/vector/index.mdx"] = []byte("---\ntitle: Vector\nimage: ./cover.svg\n---\n")
	files["articles/vector/cover.svg"] = []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50"><rect width="100" height="50" fill="#ff8800"/></svg>`)
	a, _ := newTestApp(t, SiteConfig{}, files)

	t.Run("raster served as stored", func(t *testing.T) {
		rec := do(a, http.MethodGet, "/og/articles/content/with-photo.png", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !bytes.Equal(rec.Body.Bytes(), files["articles/with-photo/images/main.png"]) {
			t.Error("source image bytes differ from the stored file")
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("svg rasterized", func(t *testing.T) {
		rec := do(a, http.MethodGet, "/og/articles/content/vector.png", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
			t.Error("expected a PNG body")
		}
	})

	t.Run("no image", func(t *testing.T) {
		if rec := do(a, http.MethodGet, "/og/articles/content/typescript-generics.png", nil); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestFallbackPlaceholder(t *testing.T) {
	files := defaultFiles(t)
	files["articles/placeholder-only/index.mdx"] = []byte("---\ntitle: Placeholder\n---\n")
	files["articles/placeholder-only/placeholder.svg"] = []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="40" height="20"><rect width="40" height="20" fill="#222"/></svg>`)
	a, _ := newTestApp(t, SiteConfig{}, files)

	rec := do(a, http.MethodGet, "/og/articles/content/placeholder-only.png", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	assertCard(t, do(a, http.MethodGet, "/og/articles/placeholder-only.png", nil))
}

func TestRenderRateLimit(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{RenderRateLimit: 1}, defaultFiles(t))

	assertCard(t, do(a, http.MethodGet, "/og/articles/typescript-generics.png", nil))
	rec := do(a, http.MethodGet, "/og/articles/typescript-generics.png", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if rec := do(a, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz should not be rate limited, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, defaultFiles(t))
	rec := do(a, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status  string         `json:"status"`
		Entries map[string]int `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Entries["articles"] != 3 || body.Entries["resources"] != 1 {
		t.Errorf("health = %+v", body)
	}
}

func TestCardID(t *testing.T) {
	tests := []struct {
		param, id, format string
	}{
		{"post.png", "post", "png"},
		{"post.svg", "post", "svg"},
		{"post", "post", "png"},
		{"guides/intro.png", "guides/intro", "png"},
		{"/post.png/", "post", "png"},
		{".png", "", "png"},
		{"", "", "png"},
	}
	for _, tt := range tests {
		id, format := cardID(tt.param)
		if id != tt.id || format != tt.format {
			t.Errorf("cardID(%q) = %q, %q; want %q, %q", tt.param, id, format, tt.id, tt.format)
		}
	}
}

func TestReindexPicksUpNewEntries(t *testing.T) {
	a, _ := newTestApp(t, SiteConfig{}, defaultFiles(t))
	if rec := do(a, http.MethodGet, "/og/articles/fresh.png", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before reindex", rec.Code)
	}

	dir := filepath.Join(a.contentDir(), "articles", "fresh")
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "index.mdx"), []byte("---\ntitle: Fresh\n---\n"), 0o644)
	if err := a.Reindex(); err != nil {
		t.Fatal(err)
	}
	assertCard(t, do(a, http.MethodGet, "/og/articles/fresh.png", nil))
}

func TestReindexKeepsEntriesWhenWalkFails(t *testing.T) {
	a, logs := newTestApp(t, SiteConfig{}, defaultFiles(t))
	assertCard(t, do(a, http.MethodGet, "/og/articles/with-photo.png", nil))

	a.scan = func(root, col string) ([]content.Entry, error) {
		if col == content.Articles {
			return nil, fmt.Errorf("scan %s: %w: %w", col, content.ErrWalk, os.ErrPermission)
		}
		return content.Scan(root, col)
	}
	if err := a.Reindex(); err != nil {
		t.Fatal(err)
	}
	if n, _ := a.Store.Count(content.Articles); n != 3 {
		t.Errorf("articles = %d after failed walk, want 3", n)
	}
	assertCard(t, do(a, http.MethodGet, "/og/articles/with-photo.png", nil))
	if !strings.Contains(logs.String(), "keeping previous entries") {
		t.Errorf("expected the failed walk to be logged, got %q", logs.String())
	}
}
