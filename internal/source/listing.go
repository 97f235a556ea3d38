package source

import (
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Jaculabilis/intake-sources/internal/extract"
	"github.com/Jaculabilis/intake-sources/internal/item"
	"github.com/Jaculabilis/intake-sources/internal/policy"
	"github.com/Jaculabilis/intake-sources/internal/reddit"
)

const (
	redditPermalinkBase = "https://reddit.com"
	redditDeletedAuthor = "[deleted]"
	redditVideoHost     = "v.redd"
)

// listingMapper turns listing posts into items. The public and OAuth
// listings share it and differ only in the flags set here.
type listingMapper struct {
	policy    *policy.Policy
	logger    *log.Logger
	subreddit string
	page      reddit.Page

	// detectVideo marks posts hosted on the native video CDN.
	detectVideo bool
	extract     extract.Options
}

// toItem maps p, reporting false when the policy drops it.
func (m *listingMapper) toItem(p *reddit.Post) (item.Item, bool) {
	d := m.policy.Decide(policy.Candidate{
		NSFW:    p.Over18,
		Spoiler: p.Spoiler,
		Video:   m.detectVideo && strings.Contains(p.URL, redditVideoHost),
		Score:   p.Score,
		Author:  p.Author,
	})
	if !d.Keep {
		m.logger.Debug("dropped", "id", p.ID, "reason", d.Reason)
		return item.Item{}, false
	}

	it := item.Item{
		ID:   p.ID,
		Tags: d.Tags,
		TTL:  m.page.TTL(),
		Body: extract.Body(p, m.extract),
	}

	if p.Title != "" {
		prefixed := p.SubredditNamePrefixed
		if prefixed == "" {
			prefixed = "r/" + m.subreddit
		}
		it.Title = d.Title("/" + prefixed + ": " + p.Title)
	}

	switch p.Author {
	case "":
	case redditDeletedAuthor:
		it.Author = redditDeletedAuthor
	default:
		it.Author = "/u/" + p.Author
	}

	if p.CreatedUTC > 0 {
		it.Time = int64(p.CreatedUTC)
	}
	if p.Permalink != "" {
		it.Link = redditPermalinkBase + p.Permalink
	}

	return it, true
}
