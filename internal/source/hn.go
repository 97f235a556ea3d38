package source

import (
	"context"
	"fmt"
	"iter"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/Jaculabilis/intake-sources/internal/config"
	"github.com/Jaculabilis/intake-sources/internal/fetch"
	"github.com/Jaculabilis/intake-sources/internal/item"
	"github.com/Jaculabilis/intake-sources/internal/policy"
)

const (
	hnSourceName  = "hackernews"
	hnAPIBase     = "https://hacker-news.firebaseio.com/v0"
	hnCommentsURL = "https://news.ycombinator.com/item?id=%d"
	hnMaxStories  = 500
	hnTTL         = 60 * 60 * 72
)

// HNSource fetches the Hacker News front page through the Firebase API.
type HNSource struct {
	fetcher    *fetch.Fetcher
	policy     *policy.Policy
	logger     *log.Logger
	fetchCount int
	baseURL    string
}

// NewHN creates a Hacker News source. Only the min score policy applies.
func NewHN(cfg *config.Config, fetcher *fetch.Fetcher, logger *log.Logger) *HNSource {
	return &HNSource{
		fetcher:    fetcher,
		policy:     policy.New(cfg.Policy),
		logger:     logger,
		fetchCount: min(cfg.HN.FetchCount, hnMaxStories),
		baseURL:    hnAPIBase,
	}
}

func (h *HNSource) Name() string {
	return hnSourceName
}

// hnStory is an item from the Firebase API.
type hnStory struct {
	ID    int    `json:"id"`
	Type  string `json:"type"`
	By    string `json:"by"`
	Time  int64  `json:"time"`
	Text  string `json:"text"`
	URL   string `json:"url"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

// Items fetches the ranked id list, then each story in rank order. A story
// that cannot be fetched is logged and skipped; failing to fetch the id list
// aborts the run.
func (h *HNSource) Items(ctx context.Context) iter.Seq2[item.Item, error] {
	return func(yield func(item.Item, error) bool) {
		var ids []int
		if err := h.fetcher.GetJSON(ctx, h.baseURL+"/topstories.json", &ids); err != nil {
			fail(yield, fmt.Errorf("hn: fetch top stories: %w", err))
			return
		}
		if len(ids) > h.fetchCount {
			ids = ids[:h.fetchCount]
		}
		h.logger.Info("fetching stories", "count", len(ids))

		for _, id := range ids {
			var story *hnStory
			url := fmt.Sprintf("%s/item/%d.json", h.baseURL, id)
			if err := h.fetcher.GetJSON(ctx, url, &story); err != nil {
				if ctx.Err() != nil {
					fail(yield, ctx.Err())
					return
				}
				h.logger.Warn("skipping story", "id", id, "err", err)
				continue
			}
			if story == nil {
				h.logger.Debug("skipping missing story", "id", id)
				continue
			}
			if h.policy.BelowMinScore(story.Score) {
				h.logger.Debug("dropped", "id", id, "reason", policy.ReasonScore, "score", story.Score)
				continue
			}
			if !yield(storyItem(story), nil) {
				return
			}
		}
	}
}

func storyItem(s *hnStory) item.Item {
	it := item.Item{
		ID:     strconv.Itoa(s.ID),
		Title:  s.Title,
		Author: s.By,
		Time:   s.Time,
		Link:   s.URL,
		Body:   fmt.Sprintf(`<p><a href="`+hnCommentsURL+`">Link to comments</a></p>`, s.ID),
		TTL:    hnTTL,
	}
	if s.Text != "" {
		it.Body = s.Text + it.Body
	}
	return it
}
