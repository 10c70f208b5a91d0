package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/image/font/opentype"
)

const maxFontBytes = 8 << 20

var (
	fontFaceRe   = regexp.MustCompile(`(?s)@font-face\s*\{(.*?)\}`)
	fontFamilyRe = regexp.MustCompile(`font-family\s*:\s*['"]?([^;'"]+?)['"]?\s*(?:;|$)`)
	fontWeightRe = regexp.MustCompile(`font-weight\s*:\s*([a-z0-9]+)`)
	fontURLRe    = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)
)

// FontFace is one @font-face rule of a stylesheet.
type FontFace struct {
	Family string
	Weight int
	URL    string
}

// ParseFontFaces extracts the @font-face rules of css. Relative URLs are
// resolved against base.
func ParseFontFaces(css string, base *url.URL) []FontFace {
	var out []FontFace
	for _, m := range fontFaceRe.FindAllStringSubmatch(css, -1) {
		block := m[1]
		fam := fontFamilyRe.FindStringSubmatch(block)
		src := fontURLRe.FindStringSubmatch(block)
		if fam == nil || src == nil {
			continue
		}
		weight := 400
		if w := fontWeightRe.FindStringSubmatch(block); w != nil {
			weight = parseWeight(w[1])
		}
		u := strings.TrimSpace(src[1])
		if base != nil {
			if ref, err := url.Parse(u); err == nil {
				u = base.ResolveReference(ref).String()
			}
		}
		out = append(out, FontFace{Family: strings.TrimSpace(fam[1]), Weight: weight, URL: u})
	}
	return out
}

func parseWeight(s string) int {
	switch s {
	case "normal":
		return 400
	case "bold":
		return 700
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return 400
}

// FetchWebfonts downloads the stylesheet at cssURL and every font it
// declares. Any failure discards the whole set.
func FetchWebfonts(ctx context.Context, client *http.Client, cssURL string) ([]Face, error) {
	base, err := url.Parse(cssURL)
	if err != nil {
		return nil, fmt.Errorf("parse css url: %w", err)
	}
	css, _, err := fetch(ctx, client, cssURL, 1<<20)
	if err != nil {
		return nil, fmt.Errorf("fetch css: %w", err)
	}
	decls := ParseFontFaces(string(css), base)
	if len(decls) == 0 {
		return nil, fmt.Errorf("no @font-face rules in %s", cssURL)
	}

	faces := make([]Face, 0, len(decls))
	for _, d := range decls {
		data, _, err := fetch(ctx, client, d.URL, maxFontBytes)
		if err != nil {
			return nil, fmt.Errorf("fetch font %s: %w", d.URL, err)
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", d.URL, err)
		}
		faces = append(faces, Face{Family: d.Family, Weight: d.Weight, Font: f})
	}
	return faces, nil
}

// fetch GETs rawURL and returns at most limit bytes of body with the
// response content type.
func fetch(ctx context.Context, client *http.Client, rawURL string, limit int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("response exceeds %d bytes", limit)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
