package card

import (
	"fmt"
	"image/color"
	"math"
)

// Node is one region of the box-tree: a container, a text run or an image.
type Node struct {
	Name     string
	Style    Style
	Text     string
	Image    string // data URI
	Children []*Node
}

// Direction is the main axis of a container.
type Direction int

const (
	Column Direction = iota
	Row
)

// Justify distributes children along the main axis.
type Justify int

const (
	JustifyStart Justify = iota
	JustifyCenter
	JustifyEnd
	JustifySpaceBetween
)

// Align positions children on the cross axis.
type Align int

const (
	AlignStretch Align = iota
	AlignStart
	AlignCenter
	AlignEnd
)

// Fit controls how an image fills its box.
type Fit int

const (
	FitCover Fit = iota
	FitContain
	FitFill
)

// Edges holds per-side lengths.
type Edges struct {
	Top, Right, Bottom, Left float64
}

// Pad is shorthand for vertical/horizontal edges.
func Pad(v, h float64) Edges { return Edges{Top: v, Right: h, Bottom: v, Left: h} }

// All sets every edge to v.
func All(v float64) Edges { return Edges{v, v, v, v} }

// Horizontal returns the sum of the left and right edges.
func (e Edges) Horizontal() float64 { return e.Left + e.Right }

// Vertical returns the sum of the top and bottom edges.
func (e Edges) Vertical() float64 { return e.Top + e.Bottom }

// Style is the subset of CSS box properties the renderer understands.
type Style struct {
	// Absolute nodes are placed at (X, Y) relative to their parent and take
	// the parent's size when Width/Height are zero.
	Absolute bool
	X, Y     float64

	Width, Height float64 // zero means auto
	MaxWidth      float64
	Grow          float64

	Direction Direction
	Justify   Justify
	Align     Align
	Gap       float64
	Padding   Edges
	Margin    Edges

	Fill   Paint
	Border *Border
	Radius float64
	Fit    Fit

	Font   Font
	Shadow *Shadow
}

// Font describes how a text node is drawn.
type Font struct {
	Family     string
	Weight     int
	Size       float64
	LineHeight float64 // multiple of Size; zero means 1.2
	Color      color.NRGBA
	MaxLines   int // zero means unlimited
}

// Border is a solid stroke around the box.
type Border struct {
	Width float64
	Color color.NRGBA
}

// Shadow is a text shadow.
type Shadow struct {
	DX, DY, Blur float64
	Color        color.NRGBA
}

// Paint fills a box.
type Paint interface {
	paint()
}

// Solid is a flat color.
type Solid struct {
	Color color.NRGBA
}

// Stop is a gradient color stop; Offset is in [0, 1].
type Stop struct {
	Offset float64
	Color  color.NRGBA
}

// LinearGradient follows CSS linear-gradient semantics; Angle is in degrees
// with 0 pointing up and 90 pointing right.
type LinearGradient struct {
	Angle float64
	Stops []Stop
}

// RadialGradient is a centered circle gradient sized to the farthest corner.
type RadialGradient struct {
	Stops []Stop
}

// Grid is a repeating line texture: one line of Thickness px at the start of
// every Spacing px cell, horizontally and vertically.
type Grid struct {
	Color     color.NRGBA
	Spacing   float64
	Thickness float64
}

func (Solid) paint()          {}
func (LinearGradient) paint() {}
func (RadialGradient) paint() {}
func (Grid) paint()           {}

// Hex parses #rrggbb.
func Hex(s string) color.NRGBA {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{A: 255}
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// RGBA builds a color from 8-bit channels and a [0, 1] alpha.
func RGBA(r, g, b uint8, a float64) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: alpha(a)}
}

// HSLA converts CSS hsl() components (h in degrees, s and l in percent).
func HSLA(h, s, l, a float64) color.NRGBA {
	s /= 100
	l /= 100
	c := (1 - math.Abs(2*l-1)) * s
	hp := math.Mod(h, 360) / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	m := l - c/2
	return color.NRGBA{
		R: channel(r + m),
		G: channel(g + m),
		B: channel(b + m),
		A: alpha(a),
	}
}

// HSL is HSLA with full opacity.
func HSL(h, s, l float64) color.NRGBA { return HSLA(h, s, l, 1) }

// Transparent returns c with zero alpha, so gradients fade without shifting hue.
func Transparent(c color.NRGBA) color.NRGBA {
	c.A = 0
	return c
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func alpha(a float64) uint8 { return channel(a) }

// Find returns the first node in depth-first order with the given name.
func (n *Node) Find(name string) *Node {
	if n == nil {
		return nil
	}
	if n.Name == name {
		return n
	}
	for _, c := range n.Children {
		if f := c.Find(name); f != nil {
			return f
		}
	}
	return nil
}

// FindAll returns every node with the given name in depth-first order.
func (n *Node) FindAll(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	if n.Name == name {
		out = append(out, n)
	}
	for _, c := range n.Children {
		out = append(out, c.FindAll(name)...)
	}
	return out
}
