package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRetry      = 6
	DefaultBackoff    = 20 * time.Second
	DefaultUserAgent  = "intake-sources/1.0 (+https://github.com/Jaculabilis/intake-sources)"
	DefaultTitle      = "Hello, world!"
	DefaultFetchCount = 30
	DefaultPage       = "hot"
	DefaultLogLevel   = "info"
)

// ErrConfig marks errors caused by missing or malformed configuration.
// Callers map it to a distinct exit status.
var ErrConfig = errors.New("configuration error")

// Duration wraps time.Duration for YAML unmarshaling from strings like "20s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := parseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the full run configuration. It is built once by Load and is not
// modified afterwards.
type Config struct {
	Request RequestConfig `yaml:"request"`
	Policy  PolicyConfig  `yaml:"policy"`
	Echo    EchoConfig    `yaml:"echo"`
	HN      HNConfig      `yaml:"hackernews"`
	Reddit  RedditConfig  `yaml:"reddit"`
	RSS     RSSConfig     `yaml:"rss"`
	Log     LogConfig     `yaml:"log"`
}

type RequestConfig struct {
	Retry     int      `yaml:"retry"`
	Backoff   Duration `yaml:"backoff"`
	Interval  Duration `yaml:"interval"`
	UserAgent string   `yaml:"user_agent"`
}

type PolicyConfig struct {
	MinScore        int      `yaml:"min_score"`
	FilterNSFW      bool     `yaml:"filter_nsfw"`
	TagNSFW         bool     `yaml:"tag_nsfw"`
	FilterSpoiler   bool     `yaml:"filter_spoiler"`
	TagSpoiler      bool     `yaml:"tag_spoiler"`
	NoVideo         bool     `yaml:"no_video"`
	Tags            []string `yaml:"tags"`
	AuthorBlocklist []string `yaml:"author_blocklist"`
}

type EchoConfig struct {
	Title  string `yaml:"title"`
	Body   string `yaml:"body"`
	Unique bool   `yaml:"unique"`
}

type HNConfig struct {
	FetchCount int `yaml:"fetch_count"`
}

// RedditConfig is shared by the public listing and the authenticated client.
// ClientID and ClientSecret are only read by the latter.
type RedditConfig struct {
	Subreddit    string `yaml:"subreddit"`
	Page         string `yaml:"page"`
	Limit        int    `yaml:"limit"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type RSSConfig struct {
	FeedURL   string `yaml:"feed_url"`
	FeedTitle string `yaml:"feed_title"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config populated with the documented defaults.
func Default() *Config {
	return &Config{
		Request: RequestConfig{
			Retry:     DefaultRetry,
			Backoff:   Duration{DefaultBackoff},
			UserAgent: DefaultUserAgent,
		},
		Policy: PolicyConfig{
			TagNSFW:    true,
			TagSpoiler: true,
		},
		Echo:   EchoConfig{Title: DefaultTitle},
		HN:     HNConfig{FetchCount: DefaultFetchCount},
		Reddit: RedditConfig{Page: DefaultPage},
		Log:    LogConfig{Level: DefaultLogLevel},
	}
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set keep their values.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: read env file: %v", ErrConfig, err)
	}
	return nil
}

// Load builds the run configuration: defaults, then the YAML file at path
// (skipped when path is empty), then variables reported by lookup.
// A nil lookup reads the process environment.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read config: %v", ErrConfig, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config: %v", ErrConfig, err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	e.int("REQUEST_RETRY", &cfg.Request.Retry)
	e.duration("REQUEST_BACKOFF", &cfg.Request.Backoff.Duration)
	e.duration("REQUEST_INTERVAL", &cfg.Request.Interval.Duration)
	e.str("USER_AGENT", &cfg.Request.UserAgent)

	e.int("MIN_SCORE", &cfg.Policy.MinScore)
	e.bool("FILTER_NSFW", &cfg.Policy.FilterNSFW)
	e.bool("TAG_NSFW", &cfg.Policy.TagNSFW)
	e.bool("FILTER_SPOILER", &cfg.Policy.FilterSpoiler)
	e.bool("TAG_SPOILER", &cfg.Policy.TagSpoiler)
	e.bool("NO_VIDEO", &cfg.Policy.NoVideo)
	e.list("TAGS", &cfg.Policy.Tags)
	e.list("AUTHOR_BLOCKLIST", &cfg.Policy.AuthorBlocklist)

	e.strOrEmpty("TITLE", &cfg.Echo.Title)
	e.strOrEmpty("BODY", &cfg.Echo.Body)
	e.bool("UNIQUE", &cfg.Echo.Unique)

	e.int("FETCH_COUNT", &cfg.HN.FetchCount)

	e.str("SUBREDDIT_NAME", &cfg.Reddit.Subreddit)
	e.str("SUBREDDIT_PAGE", &cfg.Reddit.Page)
	e.int("POST_LIMIT", &cfg.Reddit.Limit)
	e.str("CLIENT_ID", &cfg.Reddit.ClientID)
	e.str("CLIENT_SECRET", &cfg.Reddit.ClientSecret)

	e.str("FEED_URL", &cfg.RSS.FeedURL)
	e.str("FEED_TITLE", &cfg.RSS.FeedTitle)

	e.str("LOG_LEVEL", &cfg.Log.Level)

	return e.err
}

func validate(cfg *Config) error {
	if cfg.Request.Retry < 1 {
		return fmt.Errorf("request.retry must be at least 1, got %d", cfg.Request.Retry)
	}
	if cfg.Request.Backoff.Duration < 0 {
		return fmt.Errorf("request.backoff must not be negative, got %v", cfg.Request.Backoff.Duration)
	}
	if cfg.Request.Interval.Duration < 0 {
		return fmt.Errorf("request.interval must not be negative, got %v", cfg.Request.Interval.Duration)
	}
	if cfg.HN.FetchCount < 0 {
		return fmt.Errorf("hackernews.fetch_count must not be negative, got %d", cfg.HN.FetchCount)
	}
	if cfg.Reddit.Limit < 0 {
		return fmt.Errorf("reddit.limit must not be negative, got %d", cfg.Reddit.Limit)
	}
	cfg.Policy.Tags = compact(cfg.Policy.Tags)
	cfg.Policy.AuthorBlocklist = compact(cfg.Policy.AuthorBlocklist)
	return nil
}

// envReader overlays environment variables onto config fields, keeping the
// first parse error.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *envReader) fail(key, v string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%w: %s=%q: %v", ErrConfig, key, v, err)
	}
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

// strOrEmpty also honours a variable that is set to the empty string.
func (e *envReader) strOrEmpty(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

// bool accepts Go boolean literals; any other non-empty value counts as set.
func (e *envReader) bool(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
		*dst = b
		return
	}
	*dst = true
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := parseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d
}

func (e *envReader) list(key string, dst *[]string) {
	if v, ok := e.get(key); ok {
		*dst = SplitList(v)
	}
}

// parseDuration accepts a bare number of seconds or a Go duration string.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return d, nil
}

// SplitList splits a comma-separated list, dropping empty entries.
func SplitList(s string) []string {
	return compact(strings.Split(s, ","))
}

func compact(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
