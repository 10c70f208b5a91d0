// Package resolve locates the image file that belongs to a content entry.
//
// Resolution runs an ordered list of strategies; the first one that finds an
// existing file wins. "Not found" is an ordinary outcome, not an error: errors
// are reserved for unexpected I/O faults.
package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kphr/ogengine/content"
)

// DefaultFallbacks lists, per collection, the file names tried inside the
// entry directory when the declared image is missing.
var DefaultFallbacks = map[string][]string{
	content.Articles: {
		"images/main.png",
		"main.png",
		"images/placeholder.svg",
		"placeholder.svg",
	},
	content.Resources: {
		"images/main.png",
		"main.png",
	},
}

// Result is a successful resolution.
type Result struct {
	Path     string
	Strategy string
}

// Strategy tries to locate an image for an entry.
type Strategy interface {
	Name() string
	Find(e content.Entry) (path string, ok bool, err error)
}

// Resolver runs its strategies in order.
type Resolver struct {
	strategies []Strategy
}

// New returns the standard resolver: the declared reference first, then the
// collection's fallback file names. projectRoot anchors root-relative paths.
func New(projectRoot string, fallbacks map[string][]string) *Resolver {
	if fallbacks == nil {
		fallbacks = DefaultFallbacks
	}
	return NewWithStrategies(
		Declared{ProjectRoot: projectRoot},
		Fallbacks{Names: fallbacks},
	)
}

// NewWithStrategies builds a resolver from an explicit strategy list.
func NewWithStrategies(s ...Strategy) *Resolver {
	return &Resolver{strategies: s}
}

// Resolve returns the first path found. ok is false when no strategy found a
// file; err is set only for unexpected faults.
func (r *Resolver) Resolve(e content.Entry) (Result, bool, error) {
	for _, s := range r.strategies {
		path, ok, err := s.Find(e)
		if err != nil {
			return Result{}, false, fmt.Errorf("resolve %s (%s): %w", e.Key(), s.Name(), err)
		}
		if ok {
			return Result{Path: path, Strategy: s.Name()}, true, nil
		}
	}
	return Result{}, false, nil
}

// Declared resolves the entry's own image reference.
type Declared struct {
	ProjectRoot string
}

func (Declared) Name() string { return "declared" }

func (d Declared) Find(e content.Entry) (string, bool, error) {
	ref := e.Image
	if ref.Kind == content.RefProcessed {
		// The build rewrote the path; go back to what the author declared.
		orig, ok := content.RecoverImage(e.RawFrontMatter)
		if !ok {
			return "", false, nil
		}
		ref = content.NewImageRef(orig)
		if ref.Kind != content.RefExplicit {
			return "", false, nil
		}
	}
	if ref.Kind != content.RefExplicit {
		return "", false, nil
	}
	return exists(d.candidate(e.Dir, ref.Path))
}

func (d Declared) candidate(dir, ref string) string {
	if strings.HasPrefix(ref, "/") {
		return filepath.Join(d.ProjectRoot, filepath.FromSlash(strings.TrimPrefix(ref, "/")))
	}
	return filepath.Join(dir, filepath.FromSlash(ref))
}

// Fallbacks tries fixed file names inside the entry directory.
type Fallbacks struct {
	Names map[string][]string
}

func (Fallbacks) Name() string { return "fallback" }

func (f Fallbacks) Find(e content.Entry) (string, bool, error) {
	if e.Dir == "" {
		return "", false, nil
	}
	for _, name := range f.Names[e.Collection] {
		path, ok, err := exists(filepath.Join(e.Dir, filepath.FromSlash(name)))
		if err != nil || ok {
			return path, ok, err
		}
	}
	return "", false, nil
}

// exists reports whether path is an existing regular file.
func exists(path string) (string, bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return "", false, nil
		}
		return path, true, nil
	case errors.Is(err, fs.ErrNotExist), isNotDir(err):
		return "", false, nil
	default:
		return "", false, err
	}
}

// isNotDir catches ENOTDIR, returned when a path component is a file.
func isNotDir(err error) bool {
	var pe *fs.PathError
	return errors.As(err, &pe) && strings.Contains(pe.Err.Error(), "not a directory")
}
