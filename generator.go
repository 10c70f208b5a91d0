package ogengine

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/kphr/ogengine/assets"
	"github.com/kphr/ogengine/card"
	"github.com/kphr/ogengine/content"
	"github.com/kphr/ogengine/raster"
	"github.com/kphr/ogengine/resolve"
	"github.com/kphr/ogengine/svg"
)

// Generator turns content entries into card images. Image and font problems
// degrade the card and are logged; only rendering failures are returned.
type Generator struct {
	resolver    *resolve.Resolver
	assets      *assets.Loader
	site        card.Site
	log         assets.Logger
	videoThumbs bool

	group singleflight.Group
}

// NewGenerator returns a Generator.
func NewGenerator(r *resolve.Resolver, l *assets.Loader, site card.Site, logger assets.Logger, videoThumbs bool) *Generator {
	return &Generator{resolver: r, assets: l, site: site, log: logger, videoThumbs: videoThumbs}
}

func (g *Generator) warnf(format string, args ...interface{}) {
	if g.log != nil {
		g.log.Warnf(format, args...)
	}
}

// Generate renders the PNG card for e. Concurrent calls for the same entry
// share one render.
//
// The shared render does not follow the caller's cancellation: a client
// that disconnects must not leave the other callers with a card whose photo
// was dropped. Font fetching and compression carry their own deadlines.
func (g *Generator) Generate(ctx context.Context, e content.Entry) ([]byte, error) {
	ctx = context.WithoutCancel(ctx)
	v, err, _ := g.group.Do("png:"+e.Key(), func() (interface{}, error) {
		doc, err := g.vector(ctx, e)
		if err != nil {
			return nil, err
		}
		img, err := raster.Rasterize([]byte(doc), card.Width, raster.Opaque(card.Base))
		if err != nil {
			return nil, fmt.Errorf("rasterize %s: %w", e.Key(), err)
		}
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Tree builds the laid-out box-tree for e together with the fonts needed
// to render it.
func (g *Generator) Tree(ctx context.Context, e content.Entry) (*card.Node, *assets.FontSet) {
	fonts := g.assets.Fonts(ctx)
	return card.Layout(g.options(ctx, e), g.site), fonts
}

func (g *Generator) vector(ctx context.Context, e content.Entry) (string, error) {
	tree, fonts := g.Tree(ctx, e)
	doc, err := svg.Render(tree, fonts)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", e.Key(), err)
	}
	return doc, nil
}

func (g *Generator) options(ctx context.Context, e content.Entry) card.Options {
	return card.Options{
		Title:        e.Title,
		Description:  e.Excerpt,
		Type:         e.Collection,
		Tags:         e.Tags,
		Author:       e.Author,
		PubDate:      e.Date,
		ImageDataURI: g.background(ctx, e),
	}
}

// background returns the card's photo as a data URI, or "" when the entry
// has none or it cannot be used.
func (g *Generator) background(ctx context.Context, e content.Entry) string {
	res, ok, err := g.resolver.Resolve(e)
	switch {
	case err != nil:
		g.warnf("og %s: resolve image: %v", e.Key(), err)
	case ok:
		uri, err := g.assets.Background(ctx, res.Path)
		if err == nil {
			return uri
		}
		g.warnf("og %s: background %s (%s) dropped: %v", e.Key(), res.Path, res.Strategy, err)
	}

	if !g.videoThumbs || e.Collection != content.Resources {
		return ""
	}
	thumb, ok := e.VideoThumbnail()
	if !ok {
		return ""
	}
	uri, err := g.assets.RemoteBackground(ctx, thumb)
	if err != nil {
		g.warnf("og %s: video thumbnail dropped: %v", e.Key(), err)
		return ""
	}
	return uri
}
