package svg

import (
	"math"

	"github.com/kphr/ogengine/card"
)

// box is a node placed in absolute canvas coordinates.
type box struct {
	node       *card.Node
	x, y, w, h float64
	lines      []string
	kids       []*box
}

func isText(n *card.Node) bool { return n.Text != "" }

// flow returns the children of n that take part in flex layout.
func flow(n *card.Node) []*card.Node {
	var out []*card.Node
	for _, k := range n.Children {
		if !k.Style.Absolute {
			out = append(out, k)
		}
	}
	return out
}

// contentWidth is the width a node lays out in given the width offered by
// its parent.
func contentWidth(st card.Style, avail float64) float64 {
	w := avail
	if st.Width > 0 {
		w = st.Width
	}
	if st.MaxWidth > 0 && st.MaxWidth < w {
		w = st.MaxWidth
	}
	return w
}

// measure returns the natural border-box size of n when offered avail
// pixels of width.
func (s *shaper) measure(n *card.Node, avail float64) (float64, float64) {
	st := n.Style
	var w, h float64

	if isText(n) {
		for _, l := range s.wrap(n.Text, st.Font, contentWidth(st, avail)) {
			w = math.Max(w, s.width(l, st.Font))
			h += lineBox(st.Font)
		}
	} else {
		inner := contentWidth(st, avail) - st.Padding.Horizontal()
		kids := flow(n)
		for _, k := range kids {
			m := k.Style.Margin
			kw, kh := s.measure(k, inner-m.Horizontal())
			kw += m.Horizontal()
			kh += m.Vertical()
			if st.Direction == card.Row {
				w += kw
				h = math.Max(h, kh)
			} else {
				w = math.Max(w, kw)
				h += kh
			}
		}
		if len(kids) > 1 {
			gaps := st.Gap * float64(len(kids)-1)
			if st.Direction == card.Row {
				w += gaps
			} else {
				h += gaps
			}
		}
		w += st.Padding.Horizontal()
		h += st.Padding.Vertical()
	}

	if st.Width > 0 {
		w = st.Width
	}
	if st.Height > 0 {
		h = st.Height
	}
	return w, h
}

// arrange places n in the rectangle (x, y, w, h) and lays out its subtree.
func (s *shaper) arrange(n *card.Node, x, y, w, h float64) *box {
	b := &box{node: n, x: x, y: y, w: w, h: h}
	st := n.Style

	if isText(n) {
		b.lines = s.wrap(n.Text, st.Font, contentWidth(st, w))
		return b
	}

	ix, iy := x+st.Padding.Left, y+st.Padding.Top
	iw, ih := w-st.Padding.Horizontal(), h-st.Padding.Vertical()
	row := st.Direction == card.Row

	kids := flow(n)
	type slot struct{ w, h, main float64 }
	slots := make([]slot, len(kids))
	var total, grow float64
	for i, k := range kids {
		m := k.Style.Margin
		kw, kh := s.measure(k, iw-m.Horizontal())
		main := kh + m.Vertical()
		if row {
			main = kw + m.Horizontal()
		}
		slots[i] = slot{kw, kh, main}
		total += main
		grow += k.Style.Grow
	}
	if len(kids) > 1 {
		total += st.Gap * float64(len(kids)-1)
	}

	avail := ih
	if row {
		avail = iw
	}
	free := avail - total
	if grow > 0 && free > 0 {
		for i, k := range kids {
			slots[i].main += free * k.Style.Grow / grow
		}
		free = 0
	}

	cursor, spacing := 0.0, st.Gap
	switch st.Justify {
	case card.JustifyCenter:
		cursor = free / 2
	case card.JustifyEnd:
		cursor = free
	case card.JustifySpaceBetween:
		if len(kids) > 1 && free > 0 {
			spacing += free / float64(len(kids)-1)
		}
	}

	placed := make(map[*card.Node]*box, len(n.Children))
	for i, k := range kids {
		m := k.Style.Margin
		sl := slots[i]
		var kx, ky, kw, kh float64
		if row {
			kw = sl.main - m.Horizontal()
			kh = sl.h
			crossAvail := ih - m.Vertical()
			if st.Align == card.AlignStretch && k.Style.Height == 0 {
				kh = crossAvail
			}
			kx = ix + cursor + m.Left
			ky = iy + m.Top + crossOffset(st.Align, crossAvail, kh)
		} else {
			kh = sl.main - m.Vertical()
			kw = sl.w
			crossAvail := iw - m.Horizontal()
			if st.Align == card.AlignStretch && k.Style.Width == 0 {
				kw = crossAvail
			}
			ky = iy + cursor + m.Top
			kx = ix + m.Left + crossOffset(st.Align, crossAvail, kw)
		}
		placed[k] = s.arrange(k, kx, ky, kw, kh)
		cursor += sl.main + spacing
	}

	for _, k := range n.Children {
		if kb, ok := placed[k]; ok {
			b.kids = append(b.kids, kb)
			continue
		}
		kw, kh := k.Style.Width, k.Style.Height
		if kw == 0 {
			kw = w
		}
		if kh == 0 {
			kh = h
		}
		b.kids = append(b.kids, s.arrange(k, x+k.Style.X, y+k.Style.Y, kw, kh))
	}
	return b
}

func crossOffset(a card.Align, avail, size float64) float64 {
	switch a {
	case card.AlignCenter:
		return (avail - size) / 2
	case card.AlignEnd:
		return avail - size
	}
	return 0
}
