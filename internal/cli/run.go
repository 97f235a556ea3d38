package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Jaculabilis/intake-sources/internal/config"
	"github.com/Jaculabilis/intake-sources/internal/fetch"
	"github.com/Jaculabilis/intake-sources/internal/item"
	"github.com/Jaculabilis/intake-sources/internal/logging"
	"github.com/Jaculabilis/intake-sources/internal/source"
)

// builder constructs a source from the resolved configuration.
type builder func(cfg *config.Config, fetcher *fetch.Fetcher, logger *log.Logger) (source.Source, error)

func sourceCommand(use, short string, build builder) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSource(cmd.Context(), build)
		},
	}
}

func sourceCommands() []*cobra.Command {
	return []*cobra.Command{
		sourceCommand("echo", "Emit a single configurable item", func(cfg *config.Config, _ *fetch.Fetcher, _ *log.Logger) (source.Source, error) {
			return source.NewEcho(cfg.Echo), nil
		}),
		sourceCommand("hackernews", "Emit the current Hacker News top stories", func(cfg *config.Config, f *fetch.Fetcher, l *log.Logger) (source.Source, error) {
			return source.NewHN(cfg, f, l), nil
		}),
		sourceCommand("reddit", "Emit posts from a public subreddit listing", func(cfg *config.Config, f *fetch.Fetcher, l *log.Logger) (source.Source, error) {
			return source.NewReddit(cfg, f, l)
		}),
		sourceCommand("praw", "Emit posts from a subreddit via the authenticated API", func(cfg *config.Config, _ *fetch.Fetcher, l *log.Logger) (source.Source, error) {
			return source.NewPRAW(cfg, l)
		}),
		sourceCommand("rss", "Emit the entries of an RSS or Atom feed", func(cfg *config.Config, f *fetch.Fetcher, l *log.Logger) (source.Source, error) {
			return source.NewRSS(cfg, f, l)
		}),
	}
}

// loadConfig resolves the env file, the config file and the environment,
// in that order.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath, lookupEnv)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// runSource builds one source and writes each of its items to stdout. Items
// already written stay written when a later fetch fails.
func runSource(ctx context.Context, build builder) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(stderr, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfig, err)
	}

	fetcher := fetch.New(cfg.Request, fetch.WithLogger(logger))
	src, err := build(cfg, fetcher, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	emitter := item.NewEmitter(stdout)
	for it, err := range src.Items(ctx) {
		if err != nil {
			logger.Error("run failed", "source", src.Name(), "emitted", emitter.Count(), "err", err)
			return err
		}
		if err := emitter.Emit(it); err != nil {
			return fmt.Errorf("%s: %w", src.Name(), err)
		}
	}

	logger.Info("done", "source", src.Name(), "items", emitter.Count(), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
