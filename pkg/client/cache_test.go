package client

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/sec-api-client/internal/testutil"
	"github.com/Sternrassler/sec-api-client/pkg/edgar"
)

// setupTestRedis connects to a local Redis (DB 15) or skips the test.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := rdb.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})
	return rdb
}

func newCachingClient(t *testing.T, baseURL string, rdb *redis.Client) *Client {
	t.Helper()

	cfg := DefaultConfig(testAPIKey)
	cfg.BaseURL = baseURL
	cfg.Retry = fastRetry()
	cfg.RequestsPerSecond = 0
	cfg.Redis = rdb
	cfg.CacheTTL = time.Minute

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestExtractSection_CacheHit(t *testing.T) {
	rdb := setupTestRedis(t)

	mock := testutil.NewMockSecAPI()
	defer mock.Close()
	mock.SetSectionHTML("1A", "<p>Risk</p>")

	c := newCachingClient(t, mock.URL(), rdb)
	if c.GetCache() == nil {
		t.Fatal("cache should be enabled with redis")
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		html, err := c.ExtractSection(ctx, "https://www.sec.gov/doc.htm", edgar.Form10K1A)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if html != "<p>Risk</p>" {
			t.Errorf("call %d: html = %q", i, html)
		}
	}

	if got := mock.GetSectionCount("1A"); got != 1 {
		t.Errorf("upstream requests = %d, want 1", got)
	}

	keys, err := rdb.Keys(ctx, "secapi:*").Result()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	for _, key := range keys {
		if strings.Contains(key, testAPIKey) {
			t.Errorf("cache key leaks API key: %s", key)
		}
	}
}

func TestExtractSection_ProcessingNotCached(t *testing.T) {
	rdb := setupTestRedis(t)

	mock := testutil.NewMockSecAPI()
	defer mock.Close()
	mock.SetSection("1", testutil.NewProcessingResponse(), testutil.NewHTMLResponse("<p>Business</p>"))

	c := newCachingClient(t, mock.URL(), rdb)
	ctx := context.Background()

	first, err := c.ExtractSection(ctx, "https://www.sec.gov/doc.htm", edgar.Form10K1)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := c.ExtractSection(ctx, "https://www.sec.gov/doc.htm", edgar.Form10K1)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if first != "processing" || second != "<p>Business</p>" {
		t.Errorf("got %q then %q", first, second)
	}
	if got := mock.GetSectionCount("1"); got != 2 {
		t.Errorf("upstream requests = %d, want 2", got)
	}
}

func TestQueryLatestFiling_NotCached(t *testing.T) {
	rdb := setupTestRedis(t)

	mock := testutil.NewMockSecAPI()
	defer mock.Close()
	mock.SetFilings(testutil.NewFiling("10-K", "A", "0001090872-22-000108", "https://www.sec.gov/a.htm"))

	c := newCachingClient(t, mock.URL(), rdb)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.QueryLatestFiling(ctx, edgar.Form10K, "ticker", "A"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("upstream requests = %d, want 2 (POST is never cached)", got)
	}
}

func TestPurgeSections(t *testing.T) {
	rdb := setupTestRedis(t)

	mock := testutil.NewMockSecAPI()
	defer mock.Close()
	mock.SetSectionHTML("1", "<p>Business</p>")
	mock.SetSectionHTML("7", "<p>MD&amp;A</p>")

	c := newCachingClient(t, mock.URL(), rdb)
	ctx := context.Background()
	url := "https://www.sec.gov/doc.htm"

	for _, section := range []edgar.SectionType{edgar.Form10K1, edgar.Form10K7} {
		if _, err := c.ExtractSection(ctx, url, section); err != nil {
			t.Fatalf("ExtractSection(%s) error = %v", section, err)
		}
	}

	n, err := c.PurgeSections(ctx, url, []edgar.SectionType{edgar.Form10K1, edgar.Form10K1A})
	if err != nil {
		t.Fatalf("PurgeSections() error = %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1 (1A was never cached)", n)
	}

	for _, section := range []edgar.SectionType{edgar.Form10K1, edgar.Form10K7} {
		if _, err := c.ExtractSection(ctx, url, section); err != nil {
			t.Fatalf("ExtractSection(%s) error = %v", section, err)
		}
	}
	if got := mock.GetSectionCount("1"); got != 2 {
		t.Errorf("section 1 requests = %d, want 2 after purge", got)
	}
	if got := mock.GetSectionCount("7"); got != 1 {
		t.Errorf("section 7 requests = %d, want 1 (still cached)", got)
	}
}
