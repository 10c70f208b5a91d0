package content

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoFrontMatter is returned for files that do not start with a --- block.
var ErrNoFrontMatter = errors.New("missing front-matter delimiters")

// frontMatter mirrors the union of the article and resource schemas.
type frontMatter struct {
	Title       string    `yaml:"title"`
	Author      string    `yaml:"author"`
	Provider    string    `yaml:"provider"`
	Excerpt     string    `yaml:"excerpt"`
	Description string    `yaml:"description"`
	Date        string    `yaml:"date"`
	Tags        []string  `yaml:"tags"`
	Image       yaml.Node `yaml:"image"`
	IsFeatured  bool      `yaml:"isFeatured"`
	EmbedHTML   string    `yaml:"embedHtml"`
	Video       *Video    `yaml:"video"`
	FAQ         []FAQItem `yaml:"faq"`
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseFile reads a content file and decodes its front-matter into an Entry.
// Collection and ID are left for the caller to fill.
func ParseFile(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("read %s: %w", path, err)
	}
	raw, err := splitFrontMatter(data)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", path, err)
	}
	e, err := Parse(raw)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", path, err)
	}
	e.FilePath = path
	e.Dir = filepath.Dir(path)
	return e, nil
}

// Parse decodes a raw YAML front-matter block.
func Parse(raw string) (Entry, error) {
	var fm frontMatter
	if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
		return Entry{}, fmt.Errorf("parse front-matter: %w", err)
	}
	if strings.TrimSpace(fm.Title) == "" {
		return Entry{}, fmt.Errorf("missing required field: title")
	}

	e := Entry{
		Title:          fm.Title,
		Author:         firstNonEmpty(fm.Author, fm.Provider),
		Excerpt:        firstNonEmpty(fm.Excerpt, fm.Description),
		Tags:           fm.Tags,
		Featured:       fm.IsFeatured,
		EmbedHTML:      fm.EmbedHTML,
		Video:          fm.Video,
		FAQ:            fm.FAQ,
		RawFrontMatter: raw,
	}
	if fm.Date != "" {
		t, err := parseDate(fm.Date)
		if err != nil {
			return Entry{}, err
		}
		e.Date = &t
	}
	img, err := decodeImage(&fm.Image)
	if err != nil {
		return Entry{}, err
	}
	e.Image = NewImageRef(img)
	return e, nil
}

// decodeImage accepts both `image: ./x.png` and `image: {src: ./x.png}`.
func decodeImage(n *yaml.Node) (string, error) {
	switch n.Kind {
	case 0:
		return "", nil
	case yaml.ScalarNode:
		return n.Value, nil
	case yaml.MappingNode:
		var v struct {
			Src string `yaml:"src"`
		}
		if err := n.Decode(&v); err != nil {
			return "", fmt.Errorf("decode image: %w", err)
		}
		return v.Src, nil
	default:
		return "", fmt.Errorf("unsupported image value at line %d", n.Line)
	}
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// frontMatterRe matches a leading block fenced by lines holding only "---".
var frontMatterRe = regexp.MustCompile(`(?s)\A[ \t\r\n]*---[ \t]*\r?\n(?:(.*?)\r?\n)?---[ \t]*(?:\r?\n|\z)`)

func splitFrontMatter(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	m := frontMatterRe.FindSubmatch(data)
	if m == nil {
		return "", ErrNoFrontMatter
	}
	return string(m[1]), nil
}

var reImageLine = regexp.MustCompile(`(?m)^image:[ \t]*(.+?)[ \t]*$`)

// RecoverImage finds the declared `image:` value in a raw front-matter block.
// It is used when the structured value was already rewritten by the build.
func RecoverImage(raw string) (string, bool) {
	m := reImageLine.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	v = strings.TrimPrefix(v, `"`)
	v = strings.TrimPrefix(v, `'`)
	v = strings.TrimSuffix(v, `"`)
	v = strings.TrimSuffix(v, `'`)
	return v, v != ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
