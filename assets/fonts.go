package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Face is one parsed font of a family at a weight.
type Face struct {
	Family string
	Weight int
	Font   *sfnt.Font
}

// LocalFonts lists the font files read from the fonts directory.
var LocalFonts = []struct {
	File   string
	Family string
	Weight int
}{
	{"DMSans-Regular.ttf", "DM Sans", 400},
	{"DMSans-Bold.ttf", "DM Sans", 700},
	{"PlayfairDisplay-Bold.ttf", "Playfair Display", 700},
}

var goFonts = sync.OnceValues(func() (*sfnt.Font, *sfnt.Font) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("assets: parse goregular: %v", err))
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		panic(fmt.Sprintf("assets: parse gobold: %v", err))
	}
	return regular, bold
})

// FontSet is an immutable collection of faces. Lookups never fail: when no
// face of the family exists the embedded Go fonts are used.
type FontSet struct {
	faces []Face
}

// NewFontSet returns a set of the given faces. Earlier faces win when two
// share a family and weight.
func NewFontSet(faces []Face) *FontSet {
	out := make([]Face, 0, len(faces))
	seen := make(map[string]bool)
	for _, f := range faces {
		if f.Font == nil {
			continue
		}
		key := fmt.Sprintf("%s/%d", strings.ToLower(f.Family), f.Weight)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Family != out[j].Family {
			return out[i].Family < out[j].Family
		}
		return out[i].Weight < out[j].Weight
	})
	return &FontSet{faces: out}
}

// Len returns the number of faces, not counting the built-in fallback.
func (s *FontSet) Len() int { return len(s.faces) }

// Lookup returns the face of family closest to weight, or the fallback font.
func (s *FontSet) Lookup(family string, weight int) *sfnt.Font {
	var best *Face
	bestDist := 0
	for i := range s.faces {
		f := &s.faces[i]
		if !strings.EqualFold(f.Family, family) {
			continue
		}
		d := f.Weight - weight
		if d < 0 {
			d = -d
		}
		if best == nil || d < bestDist {
			best, bestDist = f, d
		}
	}
	if best != nil {
		return best.Font
	}
	return s.Fallback(weight)
}

// Fallback returns the embedded Go font for weight.
func (s *FontSet) Fallback(weight int) *sfnt.Font {
	regular, bold := goFonts()
	if weight >= 600 {
		return bold
	}
	return regular
}

// loadLocal parses the fixed font files under dir. Files that are missing
// or unparsable are reported through warn and skipped.
func loadLocal(dir string, warn func(format string, args ...interface{})) []Face {
	var faces []Face
	for _, lf := range LocalFonts {
		path := filepath.Join(dir, lf.File)
		data, err := os.ReadFile(path)
		if err != nil {
			warn("font %s unavailable: %v", path, err)
			continue
		}
		f, err := opentype.Parse(data)
		if err != nil {
			warn("font %s unparsable: %v", path, err)
			continue
		}
		faces = append(faces, Face{Family: lf.Family, Weight: lf.Weight, Font: f})
	}
	return faces
}
