// Package raster converts SVG documents to PNG.
//
// Vector content is drawn with oksvg/rasterx. Top-level <image> elements,
// which oksvg does not support, are decoded from their data URIs and
// composited in document order.
package raster

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	ErrNoRoot = errors.New("raster: document has no <svg> root")
	ErrNoSize = errors.New("raster: document has no usable viewBox or size")
)

// Background is the canvas fill under the document.
type Background struct {
	fill color.Color
}

// Transparent leaves uncovered pixels fully transparent.
var Transparent = Background{}

// Opaque fills the canvas with c before drawing.
func Opaque(c color.Color) Background { return Background{fill: c} }

// Rasterize renders doc at the given pixel width and returns PNG bytes. The
// height follows the document's aspect ratio.
func Rasterize(doc []byte, width int, bg Background) ([]byte, error) {
	img, err := Image(doc, width, bg)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("raster: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Image renders doc at the given pixel width.
func Image(doc []byte, width int, bg Background) (*image.RGBA, error) {
	if width <= 0 {
		return nil, fmt.Errorf("raster: invalid width %d", width)
	}
	p, err := split(doc)
	if err != nil {
		return nil, err
	}
	height := int(math.Round(float64(width) * p.vb.h / p.vb.w))
	if height <= 0 {
		return nil, ErrNoSize
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if bg.fill != nil {
		draw.Draw(img, img.Bounds(), image.NewUniform(bg.fill), image.Point{}, draw.Src)
	}

	scale := float64(width) / p.vb.w
	var run bytes.Buffer
	flush := func() error {
		if run.Len() == 0 {
			return nil
		}
		err := drawVector(img, p, run.Bytes())
		run.Reset()
		return err
	}
	for _, el := range p.children {
		if el.name != "image" {
			run.Write(el.raw)
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		if err := drawImage(img, el.attrs, p.vb, scale); err != nil {
			return nil, err
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return img, nil
}

type viewBox struct{ x, y, w, h float64 }

type element struct {
	name  string
	raw   []byte
	attrs []xml.Attr
}

type parsed struct {
	root     []byte // raw root start tag
	defs     []byte
	vb       viewBox
	children []element
}

// split tokenizes doc and returns the root tag, the definitions shared by
// every vector run, and the remaining top-level elements.
func split(doc []byte) (*parsed, error) {
	d := xml.NewDecoder(bytes.NewReader(doc))
	d.Strict = false

	p := &parsed{}
	depth := 0
	var cur *element
	var start int64
	for {
		off := d.InputOffset()
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("raster: parse svg: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				if t.Name.Local != "svg" {
					return nil, ErrNoRoot
				}
				p.root = append([]byte(nil), doc[off:d.InputOffset()]...)
				vb, err := rootViewBox(t.Attr)
				if err != nil {
					return nil, err
				}
				p.vb = vb
			case 2:
				cur = &element{name: t.Name.Local, attrs: t.Attr}
				start = off
			}
		case xml.EndElement:
			if depth == 2 && cur != nil {
				cur.raw = doc[start:d.InputOffset()]
				if isDef(cur.name) {
					p.defs = append(p.defs, cur.raw...)
				} else {
					p.children = append(p.children, *cur)
				}
				cur = nil
			}
			depth--
		}
	}
	if p.root == nil {
		return nil, ErrNoRoot
	}
	return p, nil
}

func isDef(name string) bool {
	switch name {
	case "defs", "linearGradient", "radialGradient", "style":
		return true
	}
	return false
}

func attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func length(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func rootViewBox(attrs []xml.Attr) (viewBox, error) {
	if vb := strings.FieldsFunc(attr(attrs, "viewBox"), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	}); len(vb) == 4 {
		var v [4]float64
		ok := true
		for i, f := range vb {
			n, err := strconv.ParseFloat(f, 64)
			ok = ok && err == nil
			v[i] = n
		}
		if ok && v[2] > 0 && v[3] > 0 {
			return viewBox{v[0], v[1], v[2], v[3]}, nil
		}
	}
	w, okW := length(attr(attrs, "width"))
	h, okH := length(attr(attrs, "height"))
	if okW && okH && w > 0 && h > 0 {
		return viewBox{0, 0, w, h}, nil
	}
	return viewBox{}, ErrNoSize
}

func drawVector(dst *image.RGBA, p *parsed, body []byte) error {
	var doc bytes.Buffer
	doc.Write(p.root)
	doc.Write(p.defs)
	doc.Write(body)
	doc.WriteString("</svg>")

	icon, err := oksvg.ReadIconStream(&doc, oksvg.IgnoreErrorMode)
	if err != nil {
		return fmt.Errorf("raster: read svg: %w", err)
	}
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return nil
}

// drawImage composites an <image> element. Only data URIs are supported;
// anything else is skipped.
func drawImage(dst *image.RGBA, attrs []xml.Attr, vb viewBox, scale float64) error {
	href := attr(attrs, "href")
	if !strings.HasPrefix(href, "data:") {
		return nil
	}
	src, err := decodeDataURI(href)
	if err != nil {
		return err
	}

	x, _ := length(attr(attrs, "x"))
	y, _ := length(attr(attrs, "y"))
	w, okW := length(attr(attrs, "width"))
	h, okH := length(attr(attrs, "height"))
	sb := src.Bounds()
	if !okW {
		w = float64(sb.Dx())
	}
	if !okH {
		h = float64(sb.Dy())
	}
	box := image.Rect(
		int(math.Round((x-vb.x)*scale)), int(math.Round((y-vb.y)*scale)),
		int(math.Round((x-vb.x+w)*scale)), int(math.Round((y-vb.y+h)*scale)),
	)
	if box.Empty() || sb.Empty() {
		return nil
	}

	dr, sr := fit(box, sb, attr(attrs, "preserveAspectRatio"))
	draw.CatmullRom.Scale(dst, dr, src, sr, draw.Over, nil)
	return nil
}

// fit returns the destination and source rectangles for a
// preserveAspectRatio value. Alignment is always centered.
func fit(box, src image.Rectangle, par string) (image.Rectangle, image.Rectangle) {
	fields := strings.Fields(par)
	if len(fields) > 0 && fields[0] == "none" {
		return box, src
	}
	bw, bh := float64(box.Dx()), float64(box.Dy())
	sw, sh := float64(src.Dx()), float64(src.Dy())

	if len(fields) > 1 && fields[1] == "slice" {
		s := math.Max(bw/sw, bh/sh)
		cw, ch := int(math.Round(bw/s)), int(math.Round(bh/s))
		x0 := src.Min.X + (src.Dx()-cw)/2
		y0 := src.Min.Y + (src.Dy()-ch)/2
		return box, image.Rect(x0, y0, x0+cw, y0+ch)
	}

	s := math.Min(bw/sw, bh/sh)
	dw, dh := int(math.Round(sw*s)), int(math.Round(sh*s))
	x0 := box.Min.X + (box.Dx()-dw)/2
	y0 := box.Min.Y + (box.Dy()-dh)/2
	return image.Rect(x0, y0, x0+dw, y0+dh), src
}

func decodeDataURI(uri string) (image.Image, error) {
	meta, data, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("raster: unsupported data URI %.40q", uri)
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("raster: decode data URI: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("raster: decode embedded image: %w", err)
	}
	return img, nil
}
