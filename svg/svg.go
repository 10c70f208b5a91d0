// Package svg renders a card box-tree to a self-contained SVG document.
// Text is emitted as glyph outlines so the output does not depend on the
// fonts installed where it is rasterized.
package svg

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/kphr/ogengine/card"
)

// Render lays out tree and returns it as an SVG document. The canvas size is
// the root node's Width and Height.
func Render(tree *card.Node, fonts Fonts) (string, error) {
	if tree == nil {
		return "", fmt.Errorf("svg: nil tree")
	}
	w, h := tree.Style.Width, tree.Style.Height
	if w <= 0 || h <= 0 {
		return "", fmt.Errorf("svg: root node needs a fixed size, got %vx%v", w, h)
	}

	s := &shaper{fonts: fonts}
	root := s.arrange(tree, 0, 0, w, h)

	e := &emitter{shaper: s}
	if err := e.box(root); err != nil {
		return "", err
	}

	var doc strings.Builder
	fmt.Fprintf(&doc, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		num(w), num(h), num(w), num(h))
	if e.defs.Len() > 0 {
		doc.WriteString("<defs>")
		doc.WriteString(e.defs.String())
		doc.WriteString("</defs>")
	}
	doc.WriteString(e.body.String())
	doc.WriteString("</svg>")
	return doc.String(), nil
}

// Document returns tree as a templ component that writes the SVG markup.
func Document(tree *card.Node, fonts Fonts) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		out, err := Render(tree, fonts)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	})
}

type emitter struct {
	*shaper
	defs, body strings.Builder
	nextID     int
}

func (e *emitter) id() string {
	id := "g" + strconv.Itoa(e.nextID)
	e.nextID++
	return id
}

func (e *emitter) box(b *box) error {
	st := b.node.Style

	if st.Fill != nil {
		e.paint(b, st.Fill)
	}
	if st.Border != nil && st.Border.Width > 0 {
		bw := st.Border.Width
		fmt.Fprintf(&e.body, `<rect x="%s" y="%s" width="%s" height="%s"%s fill="none" stroke="%s"%s stroke-width="%s"/>`,
			num(b.x+bw/2), num(b.y+bw/2), num(b.w-bw), num(b.h-bw),
			radius(math.Max(0, st.Radius-bw/2), b.w-bw, b.h-bw),
			hex(st.Border.Color), opacity("stroke-opacity", st.Border.Color), num(bw))
	}
	if b.node.Image != "" {
		fmt.Fprintf(&e.body, `<image x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="%s" href="%s"/>`,
			num(b.x), num(b.y), num(b.w), num(b.h), aspect(st.Fit), b.node.Image)
	}
	if len(b.lines) > 0 {
		if err := e.text(b); err != nil {
			return err
		}
	}
	for _, k := range b.kids {
		if err := e.box(k); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) rect(b *box, fill string) {
	fmt.Fprintf(&e.body, `<rect x="%s" y="%s" width="%s" height="%s"%s %s/>`,
		num(b.x), num(b.y), num(b.w), num(b.h), radius(b.node.Style.Radius, b.w, b.h), fill)
}

func (e *emitter) paint(b *box, p card.Paint) {
	switch p := p.(type) {
	case card.Solid:
		e.rect(b, fmt.Sprintf(`fill="%s"%s`, hex(p.Color), opacity("fill-opacity", p.Color)))

	case card.LinearGradient:
		// CSS gradient line: through the center, long enough that the
		// corners land on the first and last stop.
		rad := p.Angle * math.Pi / 180
		dx, dy := math.Sin(rad), -math.Cos(rad)
		half := (math.Abs(b.w*dx) + math.Abs(b.h*dy)) / 2
		cx, cy := b.x+b.w/2, b.y+b.h/2
		id := e.id()
		fmt.Fprintf(&e.defs, `<linearGradient id="%s" gradientUnits="userSpaceOnUse" x1="%s" y1="%s" x2="%s" y2="%s">`,
			id, num(cx-dx*half), num(cy-dy*half), num(cx+dx*half), num(cy+dy*half))
		stops(&e.defs, p.Stops)
		e.defs.WriteString("</linearGradient>")
		e.rect(b, fmt.Sprintf(`fill="url(#%s)"`, id))

	case card.RadialGradient:
		cx, cy := b.x+b.w/2, b.y+b.h/2
		id := e.id()
		fmt.Fprintf(&e.defs, `<radialGradient id="%s" gradientUnits="userSpaceOnUse" cx="%s" cy="%s" r="%s" fx="%s" fy="%s">`,
			id, num(cx), num(cy), num(math.Hypot(b.w/2, b.h/2)), num(cx), num(cy))
		stops(&e.defs, p.Stops)
		e.defs.WriteString("</radialGradient>")
		e.rect(b, fmt.Sprintf(`fill="url(#%s)"`, id))

	case card.Grid:
		if p.Spacing <= 0 || p.Thickness <= 0 {
			return
		}
		var d pathData
		for x := b.x; x < b.x+b.w; x += p.Spacing {
			d.rect(x, b.y, math.Min(p.Thickness, b.x+b.w-x), b.h)
		}
		for y := b.y; y < b.y+b.h; y += p.Spacing {
			d.rect(b.x, y, b.w, math.Min(p.Thickness, b.y+b.h-y))
		}
		fmt.Fprintf(&e.body, `<path d="%s" fill="%s"%s/>`, d.String(), hex(p.Color), opacity("fill-opacity", p.Color))
	}
}

func (e *emitter) text(b *box) error {
	f := b.node.Style.Font
	base := e.baseline(f)
	lh := lineBox(f)

	draw := func(dx, dy float64, c color.NRGBA) error {
		for i, line := range b.lines {
			var d pathData
			if err := e.outline(&d, line, f, b.x+dx, b.y+dy+float64(i)*lh+base); err != nil {
				return fmt.Errorf("svg: outline %q: %w", line, err)
			}
			if d.Len() == 0 {
				continue
			}
			fmt.Fprintf(&e.body, `<path d="%s" fill="%s"%s fill-rule="nonzero"/>`,
				d.String(), hex(c), opacity("fill-opacity", c))
		}
		return nil
	}

	if sh := b.node.Style.Shadow; sh != nil {
		if err := draw(sh.DX, sh.DY, sh.Color); err != nil {
			return err
		}
	}
	return draw(0, 0, f.Color)
}

func stops(w *strings.Builder, ss []card.Stop) {
	for _, s := range ss {
		fmt.Fprintf(w, `<stop offset="%s" stop-color="%s" stop-opacity="%s"/>`,
			num(s.Offset), hex(s.Color), num(float64(s.Color.A)/255))
	}
}

func aspect(f card.Fit) string {
	switch f {
	case card.FitContain:
		return "xMidYMid meet"
	case card.FitFill:
		return "none"
	}
	return "xMidYMid slice"
}

func radius(r, w, h float64) string {
	r = math.Min(r, math.Min(w, h)/2)
	if r <= 0 {
		return ""
	}
	return fmt.Sprintf(` rx="%s" ry="%s"`, num(r), num(r))
}

func hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func opacity(attr string, c color.NRGBA) string {
	if c.A == 255 {
		return ""
	}
	return fmt.Sprintf(` %s="%s"`, attr, num(float64(c.A)/255))
}

// num formats v with at most two decimals so output is stable.
func num(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// pathData accumulates SVG path commands.
type pathData struct {
	strings.Builder
}

func (p *pathData) cmd(op byte, xy ...float64) {
	if p.Len() > 0 {
		p.WriteByte(' ')
	}
	p.WriteByte(op)
	for _, v := range xy {
		p.WriteByte(' ')
		p.WriteString(num(v))
	}
}

func (p *pathData) close() {
	p.WriteString(" Z")
}

func (p *pathData) rect(x, y, w, h float64) {
	p.cmd('M', x, y)
	p.cmd('L', x+w, y)
	p.cmd('L', x+w, y+h)
	p.cmd('L', x, y+h)
	p.close()
}
