package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kphr/ogengine/content"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func newEntry(root, collection, id, image, raw string) content.Entry {
	return content.Entry{
		Collection:     collection,
		ID:             id,
		Image:          content.NewImageRef(image),
		RawFrontMatter: raw,
		Dir:            filepath.Join(root, "src", "data", collection, id),
	}
}

func TestDeclaredRelativeWinsOverFallback(t *testing.T) {
	root := t.TempDir()
	e := newEntry(root, content.Articles, "post", "./images/cover.png", "")
	touch(t, filepath.Join(e.Dir, "images", "cover.png"))
	touch(t, filepath.Join(e.Dir, "images", "main.png"))

	res, ok, err := New(root, nil).Resolve(e)
	if err != nil || !ok {
		t.Fatalf("Resolve = %v, %v", ok, err)
	}
	if want := filepath.Join(e.Dir, "images", "cover.png"); res.Path != want {
		t.Errorf("Path = %q, want %q", res.Path, want)
	}
	if res.Strategy != "declared" {
		t.Errorf("Strategy = %q, want declared", res.Strategy)
	}
}

func TestRootRelativeResolvesAgainstProjectRoot(t *testing.T) {
	root := t.TempDir()
	e := newEntry(root, content.Articles, "post", "/public/hero.jpg", "")
	touch(t, filepath.Join(root, "public", "hero.jpg"))

	res, ok, err := New(root, nil).Resolve(e)
	if err != nil || !ok {
		t.Fatalf("Resolve = %v, %v", ok, err)
	}
	if want := filepath.Join(root, "public", "hero.jpg"); res.Path != want {
		t.Errorf("Path = %q, want %q", res.Path, want)
	}
}

func TestProcessedRefRecoversDeclaredValue(t *testing.T) {
	root := t.TempDir()
	e := newEntry(root, content.Articles, "post", "/_astro/cover.Ab12.png", "title: x\nimage: './cover.png'\n")
	touch(t, filepath.Join(e.Dir, "cover.png"))

	res, ok, err := New(root, nil).Resolve(e)
	if err != nil || !ok {
		t.Fatalf("Resolve = %v, %v", ok, err)
	}
	if want := filepath.Join(e.Dir, "cover.png"); res.Path != want {
		t.Errorf("Path = %q, want %q", res.Path, want)
	}
}

func TestFallbackOrder(t *testing.T) {
	root := t.TempDir()
	e := newEntry(root, content.Articles, "post", "./missing.png", "")
	touch(t, filepath.Join(e.Dir, "placeholder.svg"))
	touch(t, filepath.Join(e.Dir, "main.png"))

	res, ok, err := New(root, nil).Resolve(e)
	if err != nil || !ok {
		t.Fatalf("Resolve = %v, %v", ok, err)
	}
	if want := filepath.Join(e.Dir, "main.png"); res.Path != want {
		t.Errorf("Path = %q, want %q (earlier fallback must win)", res.Path, want)
	}
	if res.Strategy != "fallback" {
		t.Errorf("Strategy = %q, want fallback", res.Strategy)
	}
}

func TestResourcesUseShortFallbackList(t *testing.T) {
	root := t.TempDir()
	e := newEntry(root, content.Resources, "kit", "", "")
	touch(t, filepath.Join(e.Dir, "placeholder.svg"))

	_, ok, err := New(root, nil).Resolve(e)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if ok {
		t.Error("resources must not fall back to placeholder.svg")
	}
}

func TestNothingFoundIsAbsent(t *testing.T) {
	root := t.TempDir()
	e := newEntry(root, content.Articles, "post", "", "")
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	res, ok, err := New(root, nil).Resolve(e)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if ok || res.Path != "" {
		t.Errorf("Resolve = %+v, %v; want absent", res, ok)
	}
}

func TestDirectoryIsNotAnImage(t *testing.T) {
	root := t.TempDir()
	e := newEntry(root, content.Articles, "post", "./images", "")
	if err := os.MkdirAll(filepath.Join(e.Dir, "images"), 0o755); err != nil {
		t.Fatal(err)
	}
	_, ok, err := New(root, nil).Resolve(e)
	if err != nil || ok {
		t.Errorf("Resolve = %v, %v; want absent", ok, err)
	}
}
