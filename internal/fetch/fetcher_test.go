package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Jaculabilis/intake-sources/internal/config"
)

func testConfig(retry int) config.RequestConfig {
	return config.RequestConfig{
		Retry:     retry,
		Backoff:   config.Duration{Duration: 20 * time.Second},
		UserAgent: "intake-test/1.0",
	}
}

// recordSleeps replaces the fetcher's sleep with one that records durations.
func recordSleeps(f *Fetcher) *[]time.Duration {
	var slept []time.Duration
	f.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return &slept
}

func TestGet_SuccessFirstTry(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "intake-test/1.0" {
			t.Errorf("user-agent = %q", got)
		}
		fmt.Fprint(w, "ok")
	}))
	defer ts.Close()

	f := New(testConfig(6))
	slept := recordSleeps(f)

	resp, err := f.Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()

	if len(*slept) != 0 {
		t.Errorf("slept %v, want no sleeps", *slept)
	}
}

func TestGet_RetriesWithDoublingBackoff(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer ts.Close()

	var logs bytes.Buffer
	f := New(testConfig(6), WithLogger(log.New(&logs)))
	slept := recordSleeps(f)

	resp, err := f.Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()

	if calls.Load() != 4 {
		t.Errorf("calls = %d, want 4", calls.Load())
	}
	want := []time.Duration{20 * time.Second, 40 * time.Second, 80 * time.Second}
	if fmt.Sprint(*slept) != fmt.Sprint(want) {
		t.Errorf("sleeps = %v, want %v", *slept, want)
	}
	if !strings.Contains(logs.String(), "error fetching") {
		t.Errorf("expected retry diagnostics, got %q", logs.String())
	}
}

func TestGet_Exhausted(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	f := New(testConfig(3))
	slept := recordSleeps(f)

	_, err := f.Get(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("err = %v, want ErrExhausted", err)
	}
	if !strings.Contains(err.Error(), "HTTP 500") {
		t.Errorf("err = %v, want last attempt error", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	// No sleep after the final attempt.
	if len(*slept) != 2 {
		t.Errorf("sleeps = %v, want 2", *slept)
	}
}

func TestGet_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	f := New(testConfig(2))
	recordSleeps(f)

	if _, err := f.Get(context.Background(), url); !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
}

func TestGet_PermanentErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	f := New(testConfig(6), WithPermanent(func(err error) bool {
		return strings.Contains(err.Error(), "HTTP 401")
	}))
	slept := recordSleeps(f)

	_, err := f.Get(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrExhausted) {
		t.Errorf("err = %v, should not report exhausted retries", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
	if len(*slept) != 0 {
		t.Errorf("sleeps = %v, want none", *slept)
	}
}

func TestGet_IndependentCalls(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1)%2 == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer ts.Close()

	f := New(testConfig(6))
	slept := recordSleeps(f)

	for range 2 {
		resp, err := f.Get(context.Background(), ts.URL)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		_ = resp.Body.Close()
	}

	// Each call starts again from the initial backoff.
	want := []time.Duration{20 * time.Second, 20 * time.Second}
	if fmt.Sprint(*slept) != fmt.Sprint(want) {
		t.Errorf("sleeps = %v, want %v", *slept, want)
	}
}

func TestGet_ContextCancelledDuringBackoff(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	f := New(testConfig(6))
	f.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := f.Get(ctx, ts.URL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestGetJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/bad" {
			fmt.Fprint(w, "{not json")
			return
		}
		fmt.Fprint(w, `[3, 1, 2]`)
	}))
	defer ts.Close()

	f := New(testConfig(1))

	var ids []int
	if err := f.GetJSON(context.Background(), ts.URL+"/ids", &ids); err != nil {
		t.Fatalf("get json: %v", err)
	}
	if fmt.Sprint(ids) != "[3 1 2]" {
		t.Errorf("ids = %v", ids)
	}

	var v any
	err := f.GetJSON(context.Background(), ts.URL+"/bad", &v)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if errors.Is(err, ErrExhausted) {
		t.Error("decode errors should not report exhaustion")
	}
}

func TestNew_IntervalPacing(t *testing.T) {
	cfg := testConfig(1)
	cfg.Interval = config.Duration{Duration: 50 * time.Millisecond}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer ts.Close()

	f := New(cfg)
	start := time.Now()
	for range 3 {
		resp, err := f.Get(context.Background(), ts.URL)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		_ = resp.Body.Close()
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("3 paced requests took %v, want at least ~100ms", elapsed)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("zero sleep: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled sleep: %v", err)
	}
}
