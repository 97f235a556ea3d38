// Package policy decides whether a listing post is kept and which tags and
// title decorations it carries.
package policy

import (
	"slices"
	"strings"

	"github.com/Jaculabilis/intake-sources/internal/config"
)

const (
	TagNSFW    = "nsfw"
	TagSpoiler = "spoiler"

	DecorationNSFW    = "[NSFW]"
	DecorationSpoiler = "[S]"
	DecorationVideo   = "[V]"
)

// Drop reasons reported in Decision.Reason.
const (
	ReasonNSFW    = "nsfw"
	ReasonSpoiler = "spoiler"
	ReasonVideo   = "video"
	ReasonScore   = "score"
	ReasonBlocked = "author blocked"
)

// Candidate carries the per-post facts the rules look at.
type Candidate struct {
	NSFW    bool
	Spoiler bool
	Video   bool
	Score   int
	Author  string
}

// Decision is the outcome of applying the rules to a Candidate.
type Decision struct {
	Keep        bool
	Reason      string   // why the candidate was dropped
	Tags        []string // base tags, then derived tags in rule order
	Decorations []string // in rule order
}

// titleOrder is the order decorations appear in a title.
var titleOrder = []string{DecorationSpoiler, DecorationNSFW, DecorationVideo}

// Title prefixes t with the decorations, e.g. "[S] [NSFW] [V] t".
func (d Decision) Title(t string) string {
	var b strings.Builder
	for _, dec := range titleOrder {
		if slices.Contains(d.Decorations, dec) {
			b.WriteString(dec)
			b.WriteByte(' ')
		}
	}
	return b.String() + t
}

// Policy applies the configured filter and tag rules.
type Policy struct {
	cfg config.PolicyConfig
}

// New creates a Policy from the policy configuration.
func New(cfg config.PolicyConfig) *Policy {
	return &Policy{cfg: cfg}
}

// BelowMinScore reports whether score fails the configured minimum.
// A minimum of zero or less disables the check.
func (p *Policy) BelowMinScore(score int) bool {
	return p.cfg.MinScore > 0 && score < p.cfg.MinScore
}

// Blocked reports whether author is on the blocklist.
func (p *Policy) Blocked(author string) bool {
	return author != "" && slices.Contains(p.cfg.AuthorBlocklist, author)
}

// Decide runs every rule against c. Tags is never nil for a kept candidate.
func (p *Policy) Decide(c Candidate) Decision {
	d := Decision{
		Tags: append([]string{}, p.cfg.Tags...),
	}

	if c.NSFW {
		if p.cfg.FilterNSFW {
			return drop(ReasonNSFW)
		}
		if p.cfg.TagNSFW {
			d.Tags = append(d.Tags, TagNSFW)
		}
		d.Decorations = append(d.Decorations, DecorationNSFW)
	}

	if c.Spoiler {
		if p.cfg.FilterSpoiler {
			return drop(ReasonSpoiler)
		}
		if p.cfg.TagSpoiler {
			d.Tags = append(d.Tags, TagSpoiler)
		}
		d.Decorations = append(d.Decorations, DecorationSpoiler)
	}

	if c.Video {
		if p.cfg.NoVideo {
			return drop(ReasonVideo)
		}
		d.Decorations = append(d.Decorations, DecorationVideo)
	}

	if p.BelowMinScore(c.Score) {
		return drop(ReasonScore)
	}

	if p.Blocked(c.Author) {
		return drop(ReasonBlocked)
	}

	d.Keep = true
	return d
}

func drop(reason string) Decision {
	return Decision{Reason: reason}
}
