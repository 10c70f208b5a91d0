package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/kphr/ogengine"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// A missing .env is fine; the environment may be set another way.
	_ = godotenv.Load()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe()
	case "build":
		err = runBuild(os.Args[2:])
	case "render":
		err = runRender(os.Args[2:])
	case "version":
		fmt.Printf("ogengine %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ogengine - Open Graph card images for a content site

Usage:
  ogengine <command> [arguments]

Commands:
  serve                                 Serve /og/<collection>/<id>.png
  build [-out dir] [-j n]               Render every entry to <dir>/og/<collection>/<id>.png
  render <collection> <id> [-o file]    Render one card
  version                               Print the ogengine version
  help                                  Show this help message

Configuration is read from the environment (and .env):
  SITE_NAME, SITE_AUTHOR, OG_ADDR, PROJECT_ROOT, CONTENT_DIR, FONTS_DIR,
  DATABASE_PATH, WEBFONT_CSS_URL, FONT_FETCH_TIMEOUT, COMPRESS_TIMEOUT,
  BACKGROUND_MAX_BYTES, JPEG_QUALITY, ENTRY_CACHE_TTL, RENDER_RATE_LIMIT,
  RENDER_RATE_WINDOW, WATCH_CONTENT, VIDEO_THUMBNAILS

Examples:
  ogengine serve
  ogengine build -out dist
  ogengine render articles typescript-generics -o card.png`)
}

func configFromEnv() (ogengine.SiteConfig, error) {
	var cfg ogengine.SiteConfig
	var err error
	cfg.Name = ogengine.EnvOr("SITE_NAME", "KPHR")
	cfg.Author = os.Getenv("SITE_AUTHOR")
	cfg.Addr = ogengine.EnvOr("OG_ADDR", ":3000")
	cfg.ProjectRoot = ogengine.EnvOr("PROJECT_ROOT", ".")
	cfg.ContentDir = ogengine.EnvOr("CONTENT_DIR", "src/data")
	cfg.FontsDir = ogengine.EnvOr("FONTS_DIR", "public/fonts")
	cfg.DatabasePath = ogengine.EnvOr("DATABASE_PATH", "data/content.db")
	cfg.WebfontCSSURL = os.Getenv("WEBFONT_CSS_URL")

	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"FONT_FETCH_TIMEOUT", "3s", &cfg.FontFetchTimeout},
		{"COMPRESS_TIMEOUT", "3s", &cfg.CompressTimeout},
		{"ENTRY_CACHE_TTL", "5m", &cfg.EntryCacheTTL},
		{"RENDER_RATE_WINDOW", "1m", &cfg.RenderRateWindow},
	}
	for _, d := range durations {
		if *d.dest, err = time.ParseDuration(ogengine.EnvOr(d.key, d.def)); err != nil {
			return cfg, fmt.Errorf("%s: %w", d.key, err)
		}
	}

	ints := []struct {
		key  string
		def  string
		dest *int
	}{
		{"BACKGROUND_MAX_BYTES", "204800", &cfg.MaxBackgroundBytes},
		{"JPEG_QUALITY", "80", &cfg.JPEGQuality},
		{"RENDER_RATE_LIMIT", "0", &cfg.RenderRateLimit},
	}
	for _, n := range ints {
		if *n.dest, err = strconv.Atoi(ogengine.EnvOr(n.key, n.def)); err != nil {
			return cfg, fmt.Errorf("%s: %w", n.key, err)
		}
	}

	if cfg.WatchContent, err = strconv.ParseBool(ogengine.EnvOr("WATCH_CONTENT", "true")); err != nil {
		return cfg, fmt.Errorf("WATCH_CONTENT: %w", err)
	}
	if cfg.VideoThumbnails, err = strconv.ParseBool(ogengine.EnvOr("VIDEO_THUMBNAILS", "false")); err != nil {
		return cfg, fmt.Errorf("VIDEO_THUMBNAILS: %w", err)
	}
	return cfg, nil
}

func runServe() error {
	cfg, err := configFromEnv()
	if err != nil {
		return err
	}
	app := ogengine.New(cfg)
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = app.Echo.Shutdown(shutdown)
	}()
	return app.Start()
}

// setupApp builds an App for one-shot commands. The watcher is never
// started for them.
func setupApp() (*ogengine.App, error) {
	cfg, err := configFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.WatchContent = false
	app := ogengine.New(cfg)
	if err := app.Setup(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	out := fs.String("out", "dist", "output directory")
	jobs := fs.Int("j", 0, "parallel renders (default GOMAXPROCS)")
	fs.Parse(args)

	app, err := setupApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	n, err := app.Build(ctx, *out, *jobs)
	if err != nil {
		return err
	}
	fmt.Printf("Rendered %d cards to %s in %s\n", n, *out, time.Since(start).Round(time.Millisecond))
	return nil
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	out := fs.String("o", "", "output file (default <id>.png in the current directory)")
	if len(args) < 2 {
		return fmt.Errorf("usage: ogengine render <collection> <id> [-o file]")
	}
	collection, id := args[0], args[1]
	fs.Parse(args[2:])

	app, err := setupApp()
	if err != nil {
		return err
	}
	defer app.Close()

	img, err := app.RenderEntry(context.Background(), collection, id)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = filepath.Base(id) + ".png"
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%s)\n", path, humanize.Bytes(uint64(len(img))))
	return nil
}
