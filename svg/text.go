package svg

import (
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"github.com/kphr/ogengine/card"
)

const ellipsis = "..."

// Fonts supplies parsed fonts to the renderer.
type Fonts interface {
	// Lookup returns the best font for a family and weight. It must not
	// return nil.
	Lookup(family string, weight int) *sfnt.Font
	// Fallback returns the font used for runes the primary font lacks.
	Fallback(weight int) *sfnt.Font
}

// glyph is a positioned glyph on a line, x relative to the line start.
type glyph struct {
	font *sfnt.Font
	idx  sfnt.GlyphIndex
	x    float64
}

// shaper measures and outlines text. It owns an sfnt.Buffer, so a shaper
// must not be shared between goroutines.
type shaper struct {
	fonts Fonts
	buf   sfnt.Buffer
}

func ppem(size float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(size * 64))
}

func toFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

// shape positions the glyphs of s and returns them with the total advance.
func (s *shaper) shape(text string, f card.Font) ([]glyph, float64) {
	primary := s.fonts.Lookup(f.Family, f.Weight)
	size := ppem(f.Size)

	var (
		out     []glyph
		x       float64
		prev    sfnt.GlyphIndex
		prevFnt *sfnt.Font
	)
	for _, r := range text {
		fnt := primary
		idx, err := fnt.GlyphIndex(&s.buf, r)
		if err != nil || idx == 0 {
			if fb := s.fonts.Fallback(f.Weight); fb != nil {
				if i, err := fb.GlyphIndex(&s.buf, r); err == nil && i != 0 {
					fnt, idx = fb, i
				}
			}
		}
		if prevFnt == fnt && prev != 0 {
			if k, err := fnt.Kern(&s.buf, prev, idx, size, font.HintingNone); err == nil {
				x += toFloat(k)
			}
		}
		out = append(out, glyph{font: fnt, idx: idx, x: x})
		if adv, err := fnt.GlyphAdvance(&s.buf, idx, size, font.HintingNone); err == nil {
			x += toFloat(adv)
		}
		prev, prevFnt = idx, fnt
	}
	return out, x
}

func (s *shaper) width(text string, f card.Font) float64 {
	_, w := s.shape(text, f)
	return w
}

// lineBox is the height of one line of text.
func lineBox(f card.Font) float64 {
	lh := f.LineHeight
	if lh == 0 {
		lh = 1.2
	}
	return f.Size * lh
}

// baseline returns the offset of the baseline from the top of a line box,
// centering the font's ascent+descent in the box like CSS does.
func (s *shaper) baseline(f card.Font) float64 {
	fnt := s.fonts.Lookup(f.Family, f.Weight)
	m, err := fnt.Metrics(&s.buf, ppem(f.Size), font.HintingNone)
	if err != nil {
		return f.Size * 0.8
	}
	asc, desc := toFloat(m.Ascent), toFloat(m.Descent)
	return (lineBox(f)-(asc+desc))/2 + asc
}

// wrap breaks text into lines no wider than maxW, honouring MaxLines.
func (s *shaper) wrap(text string, f card.Font, maxW float64) []string {
	text = norm.NFC.String(text)
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := ""
	for _, w := range words {
		if line == "" {
			line = w
		} else if cand := line + " " + w; s.width(cand, f) <= maxW {
			line = cand
			continue
		} else {
			lines = append(lines, line)
			line = w
		}
		// A single word wider than the line is broken by characters.
		for s.width(line, f) > maxW && utf8.RuneCountInString(line) > 1 {
			head, tail := s.split(line, f, maxW)
			lines = append(lines, head)
			line = tail
		}
	}
	lines = append(lines, line)

	if f.MaxLines > 0 && len(lines) > f.MaxLines {
		lines = lines[:f.MaxLines]
		lines[f.MaxLines-1] = s.clamp(lines[f.MaxLines-1], f, maxW)
	}
	return lines
}

// split returns the longest prefix of word that fits in maxW (at least one
// rune) and the remainder.
func (s *shaper) split(word string, f card.Font, maxW float64) (string, string) {
	runes := []rune(word)
	n := 1
	for n < len(runes) && s.width(string(runes[:n+1]), f) <= maxW {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}

// clamp shortens line until line+ellipsis fits in maxW.
func (s *shaper) clamp(line string, f card.Font, maxW float64) string {
	runes := []rune(line)
	for len(runes) > 0 && s.width(string(runes)+ellipsis, f) > maxW {
		runes = runes[:len(runes)-1]
	}
	return strings.TrimRight(string(runes), " ") + ellipsis
}

// outline appends the SVG path data of a line whose baseline origin is
// (ox, oy).
func (s *shaper) outline(p *pathData, text string, f card.Font, ox, oy float64) error {
	glyphs, _ := s.shape(text, f)
	size := ppem(f.Size)
	for _, g := range glyphs {
		segs, err := g.font.LoadGlyph(&s.buf, g.idx, size, nil)
		if err != nil {
			return err
		}
		x0 := ox + g.x
		open := false
		for _, seg := range segs {
			a := seg.Args
			switch seg.Op {
			case sfnt.SegmentOpMoveTo:
				if open {
					p.close()
				}
				p.cmd('M', x0+toFloat(a[0].X), oy+toFloat(a[0].Y))
				open = true
			case sfnt.SegmentOpLineTo:
				p.cmd('L', x0+toFloat(a[0].X), oy+toFloat(a[0].Y))
			case sfnt.SegmentOpQuadTo:
				p.cmd('Q',
					x0+toFloat(a[0].X), oy+toFloat(a[0].Y),
					x0+toFloat(a[1].X), oy+toFloat(a[1].Y))
			case sfnt.SegmentOpCubeTo:
				p.cmd('C',
					x0+toFloat(a[0].X), oy+toFloat(a[0].Y),
					x0+toFloat(a[1].X), oy+toFloat(a[1].Y),
					x0+toFloat(a[2].X), oy+toFloat(a[2].Y))
			}
		}
		if open {
			p.close()
		}
	}
	return nil
}
