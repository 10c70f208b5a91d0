package ogengine

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const genericsArticle = `---
title: Understanding TypeScript Generics
excerpt: A deep dive into generic types
date: 2024-01-15
tags: [typescript, tutorial]
author: KPHR
---
Body.
`

const photoArticle = `---
title: Shipping with a photo
excerpt: Cover image from the entry directory
date: 2024-02-01
image: ./images/main.png
---
`

const toolResource = `---
title: A Handy Tool
description: Does one thing well
provider: Acme
tags: [tools]
---
`

// writeFile creates path (and its parents) under root.
func writeFile(t *testing.T, root, path string, data []byte) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func pngBytes(t *testing.T, w, h int, fill func(x, y int) color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func solid(c color.Color) func(x, y int) color.Color {
	return func(int, int) color.Color { return c }
}

// newTestApp builds an App over a temporary project containing files
// (paths relative to the content directory) and sets it up.
func newTestApp(t *testing.T, cfg SiteConfig, files map[string][]byte) (*App, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()
	cfg.ProjectRoot = root
	cfg.DatabasePath = filepath.Join(root, "data", "content.db")
	for path, data := range files {
		writeFile(t, filepath.Join(root, "src", "data"), path, data)
	}

	a := New(cfg)
	logs := &bytes.Buffer{}
	a.Logger.SetOutput(logs)
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, logs
}

func defaultFiles(t *testing.T) map[string][]byte {
	return map[string][]byte{
		"articles/typescript-generics/index.mdx": []byte(genericsArticle),
		"articles/with-photo/index.mdx":          []byte(photoArticle),
		"articles/with-photo/images/main.png":    pngBytes(t, 64, 48, solid(color.RGBA{30, 90, 200, 255})),
		"articles/guides/intro/index.md":         []byte("---\ntitle: Nested\n---\n"),
		"articles/broken/index.mdx":              []byte("---\nexcerpt: no title\n---\n"),
		"resources/handy-tool/index.mdx":         []byte(toolResource),
	}
}

func do(a *App, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func assertCard(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if cfg.Width != 1200 || cfg.Height != 630 {
		t.Errorf("size = %dx%d, want 1200x630", cfg.Width, cfg.Height)
	}
}

func noisePNG(t *testing.T, w, h int) []byte {
	rng := rand.New(rand.NewSource(7))
	return pngBytes(t, w, h, func(int, int) color.Color {
		return color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255}
	})
}

func TestSetupIndexesContent(t *testing.T) {
	a, logs := newTestApp(t, SiteConfig{}, defaultFiles(t))

	n, err := a.Store.Count("articles")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("indexed %d articles, want 3 (broken entry skipped)", n)
	}
	if !strings.Contains(logs.String(), "title") {
		t.Errorf("expected the broken entry to be logged, got %q", logs.String())
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg SiteConfig
	cfg.setDefaults()
	if cfg.Name != "KPHR" || cfg.Addr != ":3000" || cfg.ContentDir != "src/data" ||
		cfg.MaxBackgroundBytes != 200*1024 || cfg.JPEGQuality != 80 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	cfg.ProjectRoot = "/srv/site"
	if got := cfg.projectPath("public/fonts"); got != "/srv/site/public/fonts" {
		t.Errorf("projectPath = %q", got)
	}
	if got := cfg.projectPath("/abs/fonts"); got != "/abs/fonts" {
		t.Errorf("projectPath(abs) = %q", got)
	}
}
