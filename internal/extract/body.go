// Package extract assembles an HTML body for a listing post from its link,
// preview image, gallery images, and self text.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/Jaculabilis/intake-sources/internal/reddit"
)

const (
	// Separator joins the body contributions.
	Separator = "<br><hr>"

	// SelftextLimit is the number of characters of self text kept before
	// cutting at the next whitespace.
	SelftextLimit = 1024

	// Ellipsis marks truncated self text.
	Ellipsis = "[...]"

	// previewMaxWidth is the exclusive upper bound for preview widths.
	previewMaxWidth = 800
)

var reddItRe = regexp.MustCompile(`redd\.it/([A-Za-z0-9]*\....)`)

// Options tunes extraction per source.
type Options struct {
	// CanonicalGallery rewrites gallery source links to i.redd.it urls.
	CanonicalGallery bool
}

// contribution yields zero or more body parts. Nil means the contribution is
// absent for this post.
type contribution func(p *reddit.Post, opts Options) []string

var contributions = []contribution{
	linkPart,
	previewPart,
	galleryParts,
	selftextPart,
}

// Body returns the HTML body for p, or "" when nothing could be extracted.
// It never fails: a contribution that cannot be built is left out.
func Body(p *reddit.Post, opts Options) string {
	var parts []string
	for _, c := range contributions {
		parts = append(parts, c(p, opts)...)
	}
	return strings.Join(parts, Separator)
}

func linkPart(p *reddit.Post, _ Options) []string {
	if p.IsSelf {
		return nil
	}
	text := p.URL
	if text == "" {
		text = "(no url)"
	}
	return []string{linkHTML(p.URL, text)}
}

func previewPart(p *reddit.Post, _ Options) []string {
	preview, err := p.DecodePreview()
	if err != nil || len(preview.Images) == 0 {
		return nil
	}

	best := -1
	var src string
	for _, r := range preview.Images[0].Resolutions {
		if r.Width < previewMaxWidth && r.Width > best {
			best, src = r.Width, r.URL
		}
	}
	if best < 0 {
		return nil
	}
	return []string{imgHTML(src)}
}

// galleryParts emits a link and an image per gallery entry. Any entry that
// cannot be resolved drops the whole gallery.
func galleryParts(p *reddit.Post, opts Options) []string {
	if !p.IsGallery {
		return nil
	}
	data, meta, err := p.DecodeGallery()
	if err != nil {
		return nil
	}

	var parts []string
	for _, gi := range data.Items {
		m, ok := meta[gi.MediaID]
		if !ok || m.S == nil || m.S.U == "" {
			return nil
		}

		best := -1
		var src string
		for _, img := range m.P {
			if img.X < previewMaxWidth && img.X > best {
				best, src = img.X, img.U
			}
		}
		if best < 0 {
			return nil
		}

		text := m.S.U
		if opts.CanonicalGallery {
			text = canonicalImageURL(text)
		}
		parts = append(parts, linkHTML(m.S.U, text), imgHTML(src))
	}
	return parts
}

func selftextPart(p *reddit.Post, _ Options) []string {
	if p.Selftext == "" {
		return nil
	}
	text, cut := Truncate(p.Selftext, SelftextLimit)
	if cut {
		text += Ellipsis
	}
	return []string{"<p>" + text + "</p>"}
}

// Truncate shortens s to limit characters, extended to the next whitespace so
// no word is split. If no whitespace follows the limit, it backs up to the
// last whitespace before it; a single unbroken token is cut at limit.
// The second result reports whether s was shortened.
func Truncate(s string, limit int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	for i := limit; i < len(runes); i++ {
		if unicode.IsSpace(runes[i]) {
			return string(runes[:i]), true
		}
	}
	for i := limit - 1; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return string(runes[:i]), true
		}
	}
	return string(runes[:limit]), true
}

// canonicalImageURL rewrites a CDN preview url to its i.redd.it form when the
// url names an image file; other urls are returned unchanged.
func canonicalImageURL(u string) string {
	if m := reddItRe.FindStringSubmatch(u); m != nil {
		return "https://i.redd.it/" + m[1]
	}
	return u
}

func linkHTML(href, text string) string {
	return fmt.Sprintf(`<i>link:</i> <a href="%s">%s</a>`, href, text)
}

func imgHTML(src string) string {
	return fmt.Sprintf(`<img src="%s">`, src)
}
