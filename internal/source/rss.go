package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mmcdole/gofeed"

	"github.com/Jaculabilis/intake-sources/internal/config"
	"github.com/Jaculabilis/intake-sources/internal/fetch"
	"github.com/Jaculabilis/intake-sources/internal/item"
)

const (
	rssSourceName   = "rss"
	rssMissingTitle = "(No title)"
)

// ErrFeedParse is returned when the feed document cannot be parsed.
var ErrFeedParse = errors.New("failed to parse feed")

// RSSSource fetches an RSS or Atom feed and emits one item per entry.
type RSSSource struct {
	fetcher   *fetch.Fetcher
	logger    *log.Logger
	feedURL   string
	feedTitle string
}

// NewRSS creates a feed source. A feed URL is required.
func NewRSS(cfg *config.Config, fetcher *fetch.Fetcher, logger *log.Logger) (*RSSSource, error) {
	feedURL := strings.TrimSpace(cfg.RSS.FeedURL)
	if feedURL == "" {
		return nil, fmt.Errorf("rss: %w: FEED_URL is required", config.ErrConfig)
	}
	return &RSSSource{
		fetcher:   fetcher,
		logger:    logger,
		feedURL:   feedURL,
		feedTitle: cfg.RSS.FeedTitle,
	}, nil
}

func (rs *RSSSource) Name() string {
	return rssSourceName
}

// Items fetches and parses the whole feed before yielding anything, so a
// malformed document aborts the run with no output.
func (rs *RSSSource) Items(ctx context.Context) iter.Seq2[item.Item, error] {
	return func(yield func(item.Item, error) bool) {
		rs.logger.Info("fetching", "url", rs.feedURL)

		resp, err := rs.fetcher.Get(ctx, rs.feedURL)
		if err != nil {
			fail(yield, fmt.Errorf("rss: %w", err))
			return
		}
		feed, err := gofeed.NewParser().Parse(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			fail(yield, fmt.Errorf("rss: %w %s: %v", ErrFeedParse, rs.feedURL, err))
			return
		}

		title := rs.feedTitle
		if title == "" {
			title = feed.Title
		}

		for _, entry := range feed.Items {
			if !yield(entryItem(entry, title), nil) {
				return
			}
		}
	}
}

func entryItem(entry *gofeed.Item, feedTitle string) item.Item {
	it := item.Item{
		ID:   item.HashID(entryKey(entry)),
		Link: entry.Link,
		Body: entry.Description,
	}

	title := entry.Title
	if title == "" {
		title = rssMissingTitle
	}
	if feedTitle != "" {
		title = feedTitle + ": " + title
	}
	it.Title = title

	if entry.PublishedParsed != nil {
		it.Time = entry.PublishedParsed.Unix()
	}
	return it
}

// entryKey is the natural key of an entry: its link, else its guid, else its
// full serialized form.
func entryKey(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}
	if entry.GUID != "" {
		return entry.GUID
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf("%+v", *entry)
	}
	return string(b)
}
