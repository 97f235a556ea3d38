package source

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/Jaculabilis/intake-sources/internal/config"
	"github.com/Jaculabilis/intake-sources/internal/fetch"
	"github.com/Jaculabilis/intake-sources/internal/item"
	"github.com/Jaculabilis/intake-sources/internal/logging"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// testConfig returns defaults with retries that never sleep.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Request.Retry = 2
	cfg.Request.Backoff = config.Duration{}
	cfg.Request.UserAgent = "intake-test/1.0"
	return cfg
}

func testLogger() *log.Logger {
	return logging.Discard()
}

func testFetcher(cfg *config.Config, rt http.RoundTripper) *fetch.Fetcher {
	opts := []fetch.Option{fetch.WithLogger(testLogger())}
	if rt != nil {
		opts = append(opts, fetch.WithClient(&http.Client{Transport: rt}))
	}
	return fetch.New(cfg.Request, opts...)
}

// collect drains a source, stopping at the first error.
func collect(t *testing.T, src Source) ([]item.Item, error) {
	t.Helper()
	var items []item.Item
	for it, err := range src.Items(context.Background()) {
		if err != nil {
			return items, err
		}
		items = append(items, it)
	}
	return items, nil
}

// emitted returns the JSON object an item is written as.
func emitted(t *testing.T, it item.Item) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	if err := item.NewEmitter(&buf).Emit(it); err != nil {
		t.Fatalf("emit: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	return m
}
