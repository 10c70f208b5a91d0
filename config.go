package ogengine

import (
	"net/http"
	"path/filepath"
	"time"
)

// SiteConfig holds all configuration for an ogengine server.
type SiteConfig struct {
	Name   string // Wordmark on every card (default "KPHR")
	Author string // Author shown when an entry names none

	Addr         string // Listen address (default ":3000")
	ProjectRoot  string // Root for "/"-prefixed image paths (default ".")
	ContentDir   string // Collections directory, relative to ProjectRoot (default "src/data")
	FontsDir     string // Local fonts, relative to ProjectRoot (default "public/fonts")
	DatabasePath string // SQLite content index (default "data/content.db")

	WebfontCSSURL      string        // Optional stylesheet with @font-face rules
	FontFetchTimeout   time.Duration // Webfont fetch bound (default 3s)
	CompressTimeout    time.Duration // Background compression bound (default 3s)
	MaxBackgroundBytes int           // Compressed background limit (default 200 KB)
	JPEGQuality        int           // Background JPEG quality (default 80)

	EntryCacheTTL time.Duration // Content index cache TTL (default 5min)

	RenderRateLimit  int           // Renders per IP per window; 0 disables
	RenderRateWindow time.Duration // Rate limit window (default 1min)

	WatchContent    bool // Re-index when content files change
	VideoThumbnails bool // Use YouTube thumbnails for video resources without an image
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "KPHR"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ProjectRoot == "" {
		c.ProjectRoot = "."
	}
	if c.ContentDir == "" {
		c.ContentDir = "src/data"
	}
	if c.FontsDir == "" {
		c.FontsDir = "public/fonts"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/content.db"
	}
	if c.FontFetchTimeout == 0 {
		c.FontFetchTimeout = 3 * time.Second
	}
	if c.CompressTimeout == 0 {
		c.CompressTimeout = 3 * time.Second
	}
	if c.MaxBackgroundBytes == 0 {
		c.MaxBackgroundBytes = 200 * 1024
	}
	if c.JPEGQuality == 0 {
		c.JPEGQuality = 80
	}
	if c.EntryCacheTTL == 0 {
		c.EntryCacheTTL = 5 * time.Minute
	}
	if c.RenderRateWindow == 0 {
		c.RenderRateWindow = time.Minute
	}
}

// projectPath resolves p against ProjectRoot unless it is absolute.
func (c *SiteConfig) projectPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ProjectRoot, p)
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithHTTPClient sets the client used for webfonts and remote thumbnails.
func WithHTTPClient(client *http.Client) Option {
	return func(a *App) {
		a.httpClient = client
	}
}
