// Package ogengine serves Open Graph card images for a content site.
//
// Entries are indexed from front-matter files into SQLite; each request
// resolves the entry's photo, lays out the card, renders it to SVG and
// rasterizes it to a 1200x630 PNG.
package ogengine

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	_ "modernc.org/sqlite"

	"github.com/kphr/ogengine/assets"
	"github.com/kphr/ogengine/card"
	"github.com/kphr/ogengine/content"
	"github.com/kphr/ogengine/resolve"
)

var collections = []string{content.Articles, content.Resources}

// App is the central ogengine application. It wires together the content
// index, cache, generator, handlers and middleware.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Logger    *log.Logger
	Store     *Store
	Cache     *EntryCache
	Generator *Generator

	resolver      *resolve.Resolver
	renderLimiter *RenderLimiter
	watcher       *Watcher
	httpClient    *http.Client
	customRoutes  []func(*App)
	scan          func(root, collection string) ([]content.Entry, error)
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	logger := log.New("ogengine")
	logger.SetLevel(log.INFO)

	a := &App{
		Config:     cfg,
		Echo:       echo.New(),
		Logger:     logger,
		httpClient: http.DefaultClient,
		scan:       content.Scan,
	}
	a.Echo.Logger = logger
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the content index, indexes the collections and registers
// middleware and routes. Start calls it; tests and the CLI call it directly.
func (a *App) Setup() error {
	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("ogengine: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewEntryCache(a.Store, a.Config.EntryCacheTTL)

	if err := a.Reindex(); err != nil {
		return fmt.Errorf("ogengine: index content: %w", err)
	}

	a.resolver = resolve.New(a.Config.ProjectRoot, nil)
	loader := assets.NewLoader(assets.Config{
		FontsDir:           a.Config.projectPath(a.Config.FontsDir),
		WebfontCSSURL:      a.Config.WebfontCSSURL,
		FontFetchTimeout:   a.Config.FontFetchTimeout,
		CompressTimeout:    a.Config.CompressTimeout,
		MaxBackgroundBytes: a.Config.MaxBackgroundBytes,
		JPEGQuality:        a.Config.JPEGQuality,
	}, a.httpClient, a.Logger)
	a.Generator = NewGenerator(a.resolver, loader, card.Site{
		Name:          a.Config.Name,
		DefaultAuthor: a.Config.Author,
	}, a.Logger, a.Config.VideoThumbnails)

	if a.Config.RenderRateLimit > 0 {
		a.renderLimiter = NewRenderLimiter(a.Config.RenderRateLimit, a.Config.RenderRateWindow)
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start sets the app up, starts the content watcher when enabled, and
// serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	if a.Config.WatchContent {
		w, err := NewWatcher(a.contentDir(), a.Reindex, a.Logger)
		if err != nil {
			a.Logger.Warnf("content watcher disabled: %v", err)
		} else {
			a.watcher = w
		}
	}

	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	var mw []echo.MiddlewareFunc
	if a.renderLimiter != nil {
		mw = append(mw, a.rateLimitMiddleware)
	}
	methods := []string{http.MethodGet, http.MethodHead}

	og := e.Group("/og", mw...)
	og.GET("/articles/content/*", a.handleSourceImage)
	for _, col := range collections {
		h := a.handleCard(col)
		og.Match(methods, "/"+col, h)
		og.Match(methods, "/"+col+"/*", h)
	}

	e.GET("/healthz", a.handleHealth)
}

func (a *App) contentDir() string {
	return a.Config.projectPath(a.Config.ContentDir)
}

// Reindex rescans every collection into the content index and invalidates
// the cache. Entries whose front-matter cannot be parsed are logged and
// left out; a collection whose tree cannot be walked keeps its entries.
func (a *App) Reindex() error {
	root := a.contentDir()
	for _, col := range collections {
		entries, err := a.scan(root, col)
		if errors.Is(err, content.ErrWalk) {
			a.Logger.Warnf("index %s: keeping previous entries: %v", col, err)
			continue
		}
		if err != nil {
			a.Logger.Warnf("index %s: %v", col, err)
		}
		if err := a.Store.ReplaceCollection(col, entries); err != nil {
			return fmt.Errorf("index %s: %w", col, err)
		}
		a.Logger.Infof("indexed %d %s from %s", len(entries), col, filepath.Join(root, col))
	}
	a.Cache.Invalidate()
	return nil
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.renderLimiter != nil {
		a.renderLimiter.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
