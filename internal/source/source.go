// Package source implements the adapters that turn upstream records into
// items.
package source

import (
	"context"
	"iter"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Jaculabilis/intake-sources/internal/config"
	"github.com/Jaculabilis/intake-sources/internal/item"
)

// Source produces items from one upstream.
type Source interface {
	// Name returns the source identifier (e.g. "reddit").
	Name() string

	// Items yields accepted items one at a time, fetching lazily. A non-nil
	// error is the last element of the sequence and aborts the run. The
	// sequence cannot be restarted.
	Items(ctx context.Context) iter.Seq2[item.Item, error]
}

// fail yields a single terminal error.
func fail(yield func(item.Item, error) bool, err error) {
	yield(item.Item{}, err)
}

// logPolicy writes the effective filter settings to the diagnostic log.
func logPolicy(logger *log.Logger, cfg config.PolicyConfig) {
	logger.Info("policy",
		"filter_nsfw", cfg.FilterNSFW,
		"tag_nsfw", cfg.TagNSFW,
		"filter_spoiler", cfg.FilterSpoiler,
		"tag_spoiler", cfg.TagSpoiler,
		"no_video", cfg.NoVideo,
		"min_score", cfg.MinScore,
		"tags", strings.Join(cfg.Tags, ", "),
		"author_blocklist", strings.Join(cfg.AuthorBlocklist, ", "),
	)
}
