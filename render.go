package ogengine

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

const immutableCache = "public, max-age=31536000, immutable"

// etag returns a strong validator derived from the image bytes.
func etag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// writeImage sends a generated image with long-lived caching headers.
// Conditional requests matching the ETag get 304 and HEAD gets headers only.
func writeImage(c echo.Context, contentType string, data []byte) error {
	tag := etag(data)
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, contentType)
	h.Set("Cache-Control", immutableCache)
	h.Set("ETag", tag)

	if c.Request().Header.Get("If-None-Match") == tag {
		return c.NoContent(http.StatusNotModified)
	}
	h.Set(echo.HeaderContentLength, strconv.Itoa(len(data)))
	c.Response().WriteHeader(http.StatusOK)
	if c.Request().Method == http.MethodHead {
		return nil
	}
	_, err := c.Response().Write(data)
	return err
}

// RenderStatus writes a templ component with a specific HTTP status code and
// content type. The component is rendered before anything is sent, so a
// failed render still reaches the error handler.
func RenderStatus(c echo.Context, code int, contentType string, cmp templ.Component) error {
	var buf bytes.Buffer
	if err := cmp.Render(c.Request().Context(), &buf); err != nil {
		return err
	}
	return c.Blob(code, contentType, buf.Bytes())
}
