package ogengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/kphr/ogengine/content"
)

// OutputPath is where Build writes the card of e below outDir. It mirrors
// the URL the server answers for the same entry.
func OutputPath(outDir string, e content.Entry) string {
	return filepath.Join(outDir, "og", e.Collection, filepath.FromSlash(e.ID)+".png")
}

// Build renders every indexed entry to outDir with at most concurrency
// renders in flight (GOMAXPROCS when concurrency <= 0). It returns the
// number of cards written; the first failure cancels the rest.
func (a *App) Build(ctx context.Context, outDir string, concurrency int) (int, error) {
	entries, err := a.Cache.ListEntries("")
	if err != nil {
		return 0, fmt.Errorf("list entries: %w", err)
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, e := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := a.Generator.Generate(ctx, e)
			if err != nil {
				return err
			}
			path := OutputPath(outDir, e)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, img, 0o644); err != nil {
				return err
			}
			a.Logger.Infof("wrote %s", path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// RenderEntry renders one card by collection and id.
func (a *App) RenderEntry(ctx context.Context, collection, id string) ([]byte, error) {
	e, err := a.Cache.GetEntry(collection, id)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, err)
	}
	return a.Generator.Generate(ctx, e)
}
