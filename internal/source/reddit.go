package source

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Jaculabilis/intake-sources/internal/config"
	"github.com/Jaculabilis/intake-sources/internal/fetch"
	"github.com/Jaculabilis/intake-sources/internal/item"
	"github.com/Jaculabilis/intake-sources/internal/policy"
	"github.com/Jaculabilis/intake-sources/internal/reddit"
)

const (
	redditSourceName = "reddit"
	redditBaseURL    = "https://www.reddit.com"
)

// RedditSource fetches one page of a public subreddit listing via Reddit's
// JSON API.
type RedditSource struct {
	fetcher *fetch.Fetcher
	logger  *log.Logger
	cfg     config.PolicyConfig
	limit   int
	baseURL string
	mapper  listingMapper
}

// NewReddit creates a public listing source. The subreddit is required and
// the page token must name a known listing page.
func NewReddit(cfg *config.Config, fetcher *fetch.Fetcher, logger *log.Logger) (*RedditSource, error) {
	sub := strings.TrimSpace(cfg.Reddit.Subreddit)
	if sub == "" {
		return nil, fmt.Errorf("reddit: %w: SUBREDDIT_NAME is required", config.ErrConfig)
	}
	page, err := reddit.ParsePage(cfg.Reddit.Page)
	if err != nil {
		return nil, fmt.Errorf("reddit: %w: %v", config.ErrConfig, err)
	}

	return &RedditSource{
		fetcher: fetcher,
		logger:  logger,
		cfg:     cfg.Policy,
		limit:   cfg.Reddit.Limit,
		baseURL: redditBaseURL,
		mapper: listingMapper{
			policy:    policy.New(cfg.Policy),
			logger:    logger,
			subreddit: sub,
			page:      page,
		},
	}, nil
}

func (rs *RedditSource) Name() string {
	return redditSourceName
}

func (rs *RedditSource) listingURL() string {
	q := url.Values{}
	if rs.mapper.page.Sort != "" {
		q.Set("t", rs.mapper.page.Sort)
	}
	if rs.limit > 0 {
		q.Set("limit", strconv.Itoa(rs.limit))
	}
	u := fmt.Sprintf("%s/r/%s/%s.json", rs.baseURL, url.PathEscape(rs.mapper.subreddit), rs.mapper.page.Name)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// Items fetches the listing page once and maps each post through the policy
// and body extractor. Failing to fetch the page aborts the run.
func (rs *RedditSource) Items(ctx context.Context) iter.Seq2[item.Item, error] {
	return func(yield func(item.Item, error) bool) {
		u := rs.listingURL()
		rs.logger.Info("fetching", "subreddit", rs.mapper.subreddit, "page", rs.mapper.page, "url", u)
		logPolicy(rs.logger, rs.cfg)

		var listing reddit.Listing
		if err := rs.fetcher.GetJSON(ctx, u, &listing); err != nil {
			fail(yield, fmt.Errorf("reddit: r/%s: %w", rs.mapper.subreddit, err))
			return
		}

		for _, child := range listing.Data.Children {
			if child.Kind != "" && child.Kind != "t3" {
				continue
			}
			it, ok := rs.mapper.toItem(&child.Data)
			if !ok {
				continue
			}
			if !yield(it, nil) {
				return
			}
		}
	}
}
