package source

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Jaculabilis/intake-sources/internal/config"
	"github.com/Jaculabilis/intake-sources/internal/extract"
	"github.com/Jaculabilis/intake-sources/internal/fetch"
	"github.com/Jaculabilis/intake-sources/internal/item"
	"github.com/Jaculabilis/intake-sources/internal/policy"
	"github.com/Jaculabilis/intake-sources/internal/reddit"
)

const (
	prawSourceName   = "praw"
	redditOAuthBase  = "https://oauth.reddit.com"
	redditTokenURL   = "https://www.reddit.com/api/v1/access_token"
	prawDefaultLimit = 25
	prawPageSize     = 100
	prawTokenTimeout = 30 * time.Second
)

// PRAWSource lists a subreddit through the authenticated API using an
// app-only OAuth2 token.
type PRAWSource struct {
	cfg     *config.Config
	logger  *log.Logger
	limit   int
	mapper  listingMapper
	baseURL string

	tokenURL  string
	transport http.RoundTripper
}

// NewPRAW creates an authenticated listing source. Client credentials and a
// subreddit are required.
func NewPRAW(cfg *config.Config, logger *log.Logger) (*PRAWSource, error) {
	if cfg.Reddit.ClientID == "" {
		return nil, fmt.Errorf("praw: %w: CLIENT_ID required", config.ErrConfig)
	}
	if cfg.Reddit.ClientSecret == "" {
		return nil, fmt.Errorf("praw: %w: CLIENT_SECRET required", config.ErrConfig)
	}
	sub := strings.TrimSpace(cfg.Reddit.Subreddit)
	if sub == "" {
		return nil, fmt.Errorf("praw: %w: SUBREDDIT_NAME is required", config.ErrConfig)
	}
	page, err := reddit.ParsePage(cfg.Reddit.Page)
	if err != nil {
		return nil, fmt.Errorf("praw: %w: %v", config.ErrConfig, err)
	}

	limit := cfg.Reddit.Limit
	if limit == 0 {
		limit = prawDefaultLimit
	}

	return &PRAWSource{
		cfg:    cfg,
		logger: logger,
		limit:  limit,
		mapper: listingMapper{
			policy:      policy.New(cfg.Policy),
			logger:      logger,
			subreddit:   sub,
			page:        page,
			detectVideo: true,
			extract:     extract.Options{CanonicalGallery: true},
		},
		baseURL:   redditOAuthBase,
		tokenURL:  redditTokenURL,
		transport: http.DefaultTransport,
	}, nil
}

func (p *PRAWSource) Name() string {
	return prawSourceName
}

// userAgentTransport sets the User-Agent on every request, including the
// token request made by the oauth2 package.
type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(req)
}

// client returns an HTTP client that authenticates with the client
// credentials grant. Tokens are fetched on first use and refreshed as needed.
func (p *PRAWSource) client(ctx context.Context) *http.Client {
	base := &http.Client{
		Timeout:   prawTokenTimeout,
		Transport: &userAgentTransport{agent: p.cfg.Request.UserAgent, base: p.transport},
	}
	cc := clientcredentials.Config{
		ClientID:     p.cfg.Reddit.ClientID,
		ClientSecret: p.cfg.Reddit.ClientSecret,
		TokenURL:     p.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	return cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
}

// tokenRejected reports whether the token endpoint refused the credentials.
// Retrying with the same credentials cannot succeed.
func tokenRejected(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return false
	}
	return re.Response.StatusCode >= 400 && re.Response.StatusCode < 500
}

func (p *PRAWSource) pageURL(after string, count int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(count))
	if p.mapper.page.Sort != "" {
		q.Set("t", p.mapper.page.Sort)
	}
	if after != "" {
		q.Set("after", after)
	}
	return fmt.Sprintf("%s/r/%s/%s?%s", p.baseURL, url.PathEscape(p.mapper.subreddit), p.mapper.page.Name, q.Encode())
}

// Items walks the listing page by page until limit posts have been read or
// the listing ends. Dropped posts count towards the limit.
func (p *PRAWSource) Items(ctx context.Context) iter.Seq2[item.Item, error] {
	return func(yield func(item.Item, error) bool) {
		fetcher := fetch.New(p.cfg.Request,
			fetch.WithClient(p.client(ctx)),
			fetch.WithLogger(p.logger),
			fetch.WithPermanent(tokenRejected),
		)

		p.logger.Info("fetching", "count", p.limit, "subreddit", p.mapper.subreddit, "page", p.mapper.page)
		logPolicy(p.logger, p.cfg.Policy)

		remaining := p.limit
		after := ""
		for remaining > 0 {
			var listing reddit.Listing
			u := p.pageURL(after, min(remaining, prawPageSize))
			if err := fetcher.GetJSON(ctx, u, &listing); err != nil {
				fail(yield, fmt.Errorf("praw: r/%s: %w", p.mapper.subreddit, err))
				return
			}

			for _, child := range listing.Data.Children {
				if remaining == 0 {
					break
				}
				if child.Kind != "" && child.Kind != "t3" {
					continue
				}
				remaining--
				it, ok := p.mapper.toItem(&child.Data)
				if !ok {
					continue
				}
				if !yield(it, nil) {
					return
				}
			}

			after = listing.Data.After
			if after == "" || len(listing.Data.Children) == 0 {
				return
			}
		}
	}
}
