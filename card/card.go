// Package card lays out the 1200x630 Open Graph card as a box-tree.
//
// Layout is a pure function of Options: identical options always produce an
// identical tree.
package card

import (
	"image/color"
	"time"
	"unicode/utf8"
)

// Canvas size of the card in pixels.
const (
	Width  = 1200
	Height = 630
)

const (
	longTitleChars   = 50
	titleSize        = 56
	longTitleSize    = 48
	descriptionChars = 120
	maxTags          = 4
	ellipsis         = "..."
)

// Base is the canvas color under every card.
var Base = Hex("#0a0a0a")

// Font families referenced by the template.
const (
	FamilySans    = "DM Sans"
	FamilyDisplay = "Playfair Display"
)

// Entry types.
const (
	TypeArticles  = "articles"
	TypeResources = "resources"
)

// Options is the sole input of the layout.
type Options struct {
	Title       string
	Description string
	Type        string
	Tags        []string
	Author      string
	PubDate     *time.Time
	// ImageDataURI is an optional background photo (data: URI).
	ImageDataURI string
}

// Site carries site-wide values shown on every card.
type Site struct {
	Name          string
	DefaultAuthor string
}

// Theme is the type-derived palette.
type Theme struct {
	Label       string
	Accent      color.NRGBA
	BadgeFill   color.NRGBA
	BadgeBorder color.NRGBA
}

// ThemeFor returns the palette for an entry type. Unknown types use the
// article palette.
func ThemeFor(typ string) Theme {
	if typ == TypeResources {
		return Theme{
			Label:       "Resource",
			Accent:      HSL(152, 65, 45),
			BadgeFill:   HSLA(152, 65, 45, 0.15),
			BadgeBorder: HSLA(152, 65, 45, 0.35),
		}
	}
	return Theme{
		Label:       "Article",
		Accent:      HSL(260, 85, 60),
		BadgeFill:   HSLA(260, 85, 60, 0.15),
		BadgeBorder: HSLA(260, 85, 60, 0.35),
	}
}

// TitleSize returns the title font size: long titles get a smaller size.
func TitleSize(title string) float64 {
	if utf8.RuneCountInString(title) > longTitleChars {
		return longTitleSize
	}
	return titleSize
}

// Truncate cuts s to 120 characters and appends an ellipsis when longer.
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= descriptionChars {
		return s
	}
	return string([]rune(s)[:descriptionChars]) + ellipsis
}

// DisplayTags returns at most four tags in their original order.
func DisplayTags(tags []string) []string {
	n := min(len(tags), maxTags)
	out := make([]string, n)
	copy(out, tags[:n])
	return out
}

// FormatDate renders a date as "January 5, 2024"; nil yields "".
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}
