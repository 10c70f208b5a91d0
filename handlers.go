package ogengine

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kphr/ogengine/card"
	"github.com/kphr/ogengine/content"
	"github.com/kphr/ogengine/raster"
	"github.com/kphr/ogengine/svg"
)

// cardID splits the wildcard of a card URL into the entry id and the
// requested format ("png" or "svg").
func cardID(param string) (string, string) {
	id := strings.Trim(param, "/")
	format := "png"
	switch {
	case strings.HasSuffix(id, ".png"):
		id = strings.TrimSuffix(id, ".png")
	case strings.HasSuffix(id, ".svg"):
		id = strings.TrimSuffix(id, ".svg")
		format = "svg"
	}
	return strings.Trim(id, "/"), format
}

// lookup finds the entry addressed by the request wildcard.
func (a *App) lookup(c echo.Context, collection string) (content.Entry, string, error) {
	id, format := cardID(c.Param("*"))
	if id == "" {
		return content.Entry{}, "", echo.NewHTTPError(http.StatusBadRequest, "Missing id")
	}
	e, err := a.Cache.GetEntry(collection, id)
	if errors.Is(err, ErrNotFound) {
		return content.Entry{}, "", echo.NewHTTPError(http.StatusNotFound, "Not found")
	}
	if err != nil {
		return content.Entry{}, "", err
	}
	return e, format, nil
}

func (a *App) handleCard(collection string) echo.HandlerFunc {
	return func(c echo.Context) error {
		e, format, err := a.lookup(c, collection)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		if format == "svg" {
			tree, fonts := a.Generator.Tree(ctx, e)
			c.Response().Header().Set("Cache-Control", immutableCache)
			return RenderStatus(c, http.StatusOK, "image/svg+xml", svg.Document(tree, fonts))
		}
		img, err := a.Generator.Generate(ctx, e)
		if err != nil {
			return fmt.Errorf("og image %s: %w", e.Key(), err)
		}
		return writeImage(c, "image/png", img)
	}
}

// handleSourceImage serves the image an article's card would use as its
// background. SVG sources are rasterized so every response is a bitmap.
func (a *App) handleSourceImage(c echo.Context) error {
	e, _, err := a.lookup(c, content.Articles)
	if err != nil {
		return err
	}
	res, ok, err := a.resolver.Resolve(e)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		return fmt.Errorf("read %s: %w", res.Path, err)
	}

	ext := strings.ToLower(filepath.Ext(res.Path))
	if ext == ".svg" {
		img, err := raster.Rasterize(data, card.Width, raster.Transparent)
		if err != nil {
			return fmt.Errorf("rasterize %s: %w", res.Path, err)
		}
		return writeImage(c, "image/png", img)
	}
	ctype := mime.TypeByExtension(ext)
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	return writeImage(c, ctype, data)
}

func (a *App) handleHealth(c echo.Context) error {
	counts := make(map[string]int)
	for _, col := range collections {
		n, err := a.Store.Count(col)
		if err != nil {
			return err
		}
		counts[col] = n
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"entries": counts,
	})
}

// httpErrorHandler writes plain-text errors. Server errors are logged and
// their details withheld from the client.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		msg = http.StatusText(code)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.String(code, msg)
}
