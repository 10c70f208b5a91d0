package card

import "image/color"

var (
	white     = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	shadowInk = RGBA(0, 0, 0, 0.5)
)

// Layout builds the card's box-tree.
func Layout(opts Options, site Site) *Node {
	theme := ThemeFor(opts.Type)
	photo := opts.ImageDataURI != ""

	author := opts.Author
	if author == "" {
		author = site.DefaultAuthor
	}

	root := &Node{
		Name: "card",
		Style: Style{
			Width:  Width,
			Height: Height,
			Fill:   Solid{Color: Base},
		},
	}
	root.Children = append(root.Children, backdrop(opts.ImageDataURI)...)
	root.Children = append(root.Children, &Node{
		Name: "content",
		Style: Style{
			Grow:      1,
			Direction: Column,
			Padding:   All(60),
		},
		Children: []*Node{
			header(theme, site.Name),
			body(opts, photo),
			footer(theme, DisplayTags(opts.Tags), author, FormatDate(opts.PubDate), photo),
		},
	})
	return root
}

func fill() Style { return Style{Absolute: true} }

func backdrop(image string) []*Node {
	var nodes []*Node
	if image != "" {
		img := fill()
		img.Fit = FitCover
		overlay := fill()
		overlay.Fill = LinearGradient{
			Angle: 180,
			Stops: []Stop{
				{Offset: 0, Color: RGBA(0, 0, 0, 0.7)},
				{Offset: 1, Color: RGBA(0, 0, 0, 0.85)},
			},
		}
		nodes = append(nodes,
			&Node{Name: "background-image", Style: img, Image: image},
			&Node{Name: "overlay", Style: overlay},
		)
	} else {
		gradient := fill()
		gradient.Fill = LinearGradient{
			Angle: 135,
			Stops: []Stop{
				{Offset: 0, Color: HSL(260, 85, 55)},
				{Offset: 1, Color: HSL(240, 85, 65)},
			},
		}
		nodes = append(nodes,
			&Node{Name: "brand-gradient", Style: gradient},
			orb("highlight", -100, -100, 400, HSLA(260, 85, 60, 0.15)),
			orb("highlight", Width+100-500, Height+150-500, 500, HSLA(240, 85, 65, 0.12)),
		)
	}
	grid := fill()
	grid.Fill = Grid{Color: RGBA(255, 255, 255, 0.03), Spacing: 60, Thickness: 1}
	return append(nodes, &Node{Name: "grid", Style: grid})
}

func orb(name string, x, y, size float64, c color.NRGBA) *Node {
	return &Node{
		Name: name,
		Style: Style{
			Absolute: true,
			X:        x,
			Y:        y,
			Width:    size,
			Height:   size,
			Radius:   size / 2,
			Fill: RadialGradient{Stops: []Stop{
				{Offset: 0, Color: c},
				{Offset: 0.7, Color: Transparent(c)},
			}},
		},
	}
}

func header(theme Theme, siteName string) *Node {
	return &Node{
		Name: "header",
		Style: Style{
			Direction: Row,
			Justify:   JustifySpaceBetween,
			Align:     AlignCenter,
			Margin:    Edges{Bottom: 40},
		},
		Children: []*Node{
			{
				Name: "badge",
				Style: Style{
					Direction: Row,
					Align:     AlignCenter,
					Padding:   Pad(8, 20),
					Radius:    9999,
					Fill:      Solid{Color: theme.BadgeFill},
					Border:    &Border{Width: 1, Color: theme.BadgeBorder},
				},
				Children: []*Node{text("badge-label", theme.Label, Font{
					Family: FamilySans, Weight: 700, Size: 20, Color: theme.Accent,
				}, nil)},
			},
			text("wordmark", siteName, Font{
				Family: FamilyDisplay, Weight: 700, Size: 24, Color: white,
			}, nil),
		},
	}
}

func body(opts Options, photo bool) *Node {
	title := text("title", opts.Title, Font{
		Family:     FamilyDisplay,
		Weight:     700,
		Size:       TitleSize(opts.Title),
		LineHeight: 1.2,
		Color:      white,
		MaxLines:   3,
	}, shadow(photo, 2, 10))
	title.Style.MaxWidth = 900
	title.Style.Margin = Edges{Bottom: 24}

	n := &Node{
		Name: "body",
		Style: Style{
			Grow:      1,
			Direction: Column,
			Justify:   JustifyCenter,
		},
		Children: []*Node{title},
	}
	if desc := Truncate(opts.Description); desc != "" {
		d := text("description", desc, Font{
			Family:     FamilySans,
			Weight:     400,
			Size:       24,
			LineHeight: 1.5,
			Color:      RGBA(255, 255, 255, 0.85),
			MaxLines:   3,
		}, shadow(photo, 1, 5))
		d.Style.MaxWidth = 800
		d.Style.Margin = Edges{Bottom: 32}
		n.Children = append(n.Children, d)
	}
	return n
}

func footer(theme Theme, tags []string, author, date string, photo bool) *Node {
	chips := &Node{
		Name:  "tags",
		Style: Style{Direction: Row, Gap: 12, Align: AlignEnd},
	}
	for _, tag := range tags {
		chips.Children = append(chips.Children, &Node{
			Name: "tag",
			Style: Style{
				Direction: Row,
				Padding:   Pad(8, 16),
				Radius:    8,
				Fill:      Solid{Color: RGBA(255, 255, 255, 0.15)},
				Border:    &Border{Width: 1, Color: RGBA(255, 255, 255, 0.25)},
			},
			Children: []*Node{text("tag-label", tag, Font{
				Family: FamilySans, Weight: 400, Size: 16, Color: RGBA(255, 255, 255, 0.9),
			}, nil)},
		})
	}

	meta := &Node{
		Name:  "meta",
		Style: Style{Direction: Column, Align: AlignEnd, Gap: 4},
	}
	if author != "" {
		meta.Children = append(meta.Children, text("author", author, Font{
			Family: FamilySans, Weight: 600, Size: 18, Color: theme.Accent,
		}, shadow(photo, 1, 3)))
	}
	if date != "" {
		meta.Children = append(meta.Children, text("date", date, Font{
			Family: FamilySans, Weight: 400, Size: 16, Color: RGBA(255, 255, 255, 0.7),
		}, shadow(photo, 1, 3)))
	}

	return &Node{
		Name: "footer",
		Style: Style{
			Direction: Row,
			Justify:   JustifySpaceBetween,
			Align:     AlignEnd,
		},
		Children: []*Node{chips, meta},
	}
}

func text(name, s string, f Font, sh *Shadow) *Node {
	return &Node{Name: name, Text: s, Style: Style{Font: f, Shadow: sh}}
}

// shadow returns a text shadow only when a photo sits behind the text.
func shadow(photo bool, dy, blur float64) *Shadow {
	if !photo {
		return nil
	}
	return &Shadow{DY: dy, Blur: blur, Color: shadowInk}
}
