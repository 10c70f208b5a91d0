// Package content models the site's content entries (articles and resources)
// and loads them from front-matter files on disk.
package content

import (
	"strings"
	"time"
)

// Collection names known to the site.
const (
	Articles  = "articles"
	Resources = "resources"
)

// Entry is a single content item as seen by the OG pipeline. It is produced
// by the content layer and never mutated afterwards.
type Entry struct {
	Collection string
	ID         string

	Title   string
	Author  string // author for articles, provider for resources
	Excerpt string // excerpt for articles, description for resources
	Date    *time.Time
	Tags    []string
	Image   ImageRef

	Featured  bool
	EmbedHTML string
	Video     *Video
	FAQ       []FAQItem

	// RawFrontMatter is the untouched YAML block, kept so processed image
	// references can be traced back to the declared value.
	RawFrontMatter string
	// Dir is the directory holding the entry file.
	Dir      string
	FilePath string
}

// Video is optional video metadata attached to a resource.
type Video struct {
	URL      string `yaml:"url" json:"url"`
	Title    string `yaml:"title,omitempty" json:"title,omitempty"`
	Duration string `yaml:"duration,omitempty" json:"duration,omitempty"`
}

// FAQItem is a single question/answer pair.
type FAQItem struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// RefKind discriminates ImageRef values.
type RefKind int

const (
	RefAbsent RefKind = iota
	RefExplicit
	RefProcessed
)

// processedPrefix marks image paths rewritten by the site build tool. They
// no longer point at a source file.
const processedPrefix = "/_astro/"

// ImageRef is an entry's declared image: absent, an explicit path (relative,
// root-relative or bare filename) or a processed build-asset path.
type ImageRef struct {
	Kind RefKind
	Path string
}

// NewImageRef classifies a raw image value.
func NewImageRef(v string) ImageRef {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return ImageRef{}
	case strings.HasPrefix(v, processedPrefix):
		return ImageRef{Kind: RefProcessed, Path: v}
	default:
		return ImageRef{Kind: RefExplicit, Path: v}
	}
}

func (r ImageRef) String() string {
	switch r.Kind {
	case RefExplicit:
		return "explicit(" + r.Path + ")"
	case RefProcessed:
		return "processed(" + r.Path + ")"
	default:
		return "absent"
	}
}

// Key identifies an entry across collections.
func (e Entry) Key() string {
	return e.Collection + "/" + e.ID
}
