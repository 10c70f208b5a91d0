// Package assets loads what a card needs besides its text: fonts and the
// optional background photo.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gogpu/gg"
	_ "golang.org/x/image/webp"
	"golang.org/x/time/rate"

	"github.com/kphr/ogengine/card"
	"github.com/kphr/ogengine/raster"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrTooLarge          = errors.New("compressed background too large")
	ErrCompressTimeout   = errors.New("background compression timed out")
)

const maxSourceBytes = 20 << 20

// Logger receives degradations that do not fail a render.
type Logger interface {
	Warnf(format string, args ...interface{})
}

// Config controls the loader.
type Config struct {
	FontsDir           string
	WebfontCSSURL      string
	FontFetchTimeout   time.Duration
	CompressTimeout    time.Duration
	MaxBackgroundBytes int
	JPEGQuality        int
}

func (c *Config) setDefaults() {
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
}

// Loader provides fonts and background images. It is safe for concurrent
// use.
type Loader struct {
	cfg    Config
	client *http.Client
	log    Logger

	fontsOnce sync.Once
	fonts     *FontSet

	// remote paces fetches of third-party images.
	remote *rate.Limiter

	encode func(image.Image) ([]byte, error)
}

// NewLoader returns a loader. A nil client uses http.DefaultClient.
func NewLoader(cfg Config, client *http.Client, logger Logger) *Loader {
	cfg.setDefaults()
	if client == nil {
		client = http.DefaultClient
	}
	l := &Loader{
		cfg:    cfg,
		client: client,
		log:    logger,
		remote: rate.NewLimiter(rate.Every(100*time.Millisecond), 4),
	}
	l.encode = l.encodeJPEG
	return l
}

func (l *Loader) warnf(format string, args ...interface{}) {
	if l.log != nil {
		l.log.Warnf(format, args...)
	}
}

// Fonts returns the font set, loading it on first use. Webfonts, when
// configured, take precedence over the local files.
func (l *Loader) Fonts(ctx context.Context) *FontSet {
	l.fontsOnce.Do(func() {
		var faces []Face
		if l.cfg.WebfontCSSURL != "" {
			// Detached from the caller so one cancelled request does not
			// leave the set without webfonts for the process lifetime.
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.FontFetchTimeout)
			web, err := FetchWebfonts(fctx, l.client, l.cfg.WebfontCSSURL)
			cancel()
			if err != nil {
				l.warnf("webfonts unavailable, using local fonts: %v", err)
			}
			faces = append(faces, web...)
		}
		faces = append(faces, loadLocal(l.cfg.FontsDir, l.warnf)...)
		l.fonts = NewFontSet(faces)
	})
	return l.fonts
}

// Background loads the image at path and returns it as a compressed JPEG
// data URI sized for the card.
func (l *Loader) Background(ctx context.Context, path string) (string, error) {
	kind, err := formatOf(filepath.Ext(path))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read background: %w", err)
	}
	img, err := decode(data, kind)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return l.compress(ctx, img)
}

// RemoteBackground is Background for an HTTP source.
func (l *Loader) RemoteBackground(ctx context.Context, rawURL string) (string, error) {
	if err := l.remote.Wait(ctx); err != nil {
		return "", err
	}
	data, ctype, err := fetch(ctx, l.client, rawURL, maxSourceBytes)
	if err != nil {
		return "", fmt.Errorf("fetch background %s: %w", rawURL, err)
	}
	kind := "raster"
	if mt, _, err := mime.ParseMediaType(ctype); err == nil && mt == "image/svg+xml" {
		kind = "svg"
	}
	img, err := decode(data, kind)
	if err != nil {
		return "", fmt.Errorf("%s: %w", rawURL, err)
	}
	return l.compress(ctx, img)
}

func formatOf(ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".svg":
		return "svg", nil
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return "raster", nil
	}
	return "", ErrUnsupportedFormat
}

func decode(data []byte, kind string) (image.Image, error) {
	if kind == "svg" {
		img, err := raster.Image(data, card.Width, raster.Transparent)
		if err != nil {
			return nil, fmt.Errorf("rasterize svg: %w", err)
		}
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// compress encodes img within the configured deadline and size limit.
func (l *Loader) compress(ctx context.Context, img image.Image) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.CompressTimeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := l.encode(img)
		done <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrCompressTimeout
		}
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("compress background: %w", r.err)
		}
		if len(r.data) > l.cfg.MaxBackgroundBytes {
			return "", fmt.Errorf("%w: %s, limit %s", ErrTooLarge,
				humanize.IBytes(uint64(len(r.data))), humanize.IBytes(uint64(l.cfg.MaxBackgroundBytes)))
		}
		return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(r.data), nil
	}
}

// encodeJPEG cover-crops img onto the card canvas and encodes it.
func (l *Loader) encodeJPEG(img image.Image) ([]byte, error) {
	dc := gg.NewContext(card.Width, card.Height)
	defer dc.Close()

	// Transparent sources land on the card's base color.
	dc.ClearWithColor(gg.FromColor(card.Base))
	crop := CoverCrop(img.Bounds().Dx(), img.Bounds().Dy(), card.Width, card.Height)
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		DstWidth:      card.Width,
		DstHeight:     card.Height,
		SrcRect:       &crop,
		Interpolation: gg.InterpBicubic,
		Opacity:       1,
	})

	var buf bytes.Buffer
	if err := dc.EncodeJPEG(&buf, l.cfg.JPEGQuality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CoverCrop returns the centered region of a sw x sh source that has the
// aspect ratio of dw x dh.
func CoverCrop(sw, sh, dw, dh int) image.Rectangle {
	if sw <= 0 || sh <= 0 || dw <= 0 || dh <= 0 {
		return image.Rectangle{}
	}
	// Compare sw/sh with dw/dh without floats.
	if sw*dh > sh*dw {
		cw := sh * dw / dh
		x0 := (sw - cw) / 2
		return image.Rect(x0, 0, x0+cw, sh)
	}
	ch := sw * dh / dw
	y0 := (sh - ch) / 2
	return image.Rect(0, y0, sw, y0+ch)
}
