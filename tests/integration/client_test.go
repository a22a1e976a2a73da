//go:build integration

package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/sec-api-client/internal/testutil"
	"github.com/Sternrassler/sec-api-client/pkg/cache"
	"github.com/Sternrassler/sec-api-client/pkg/client"
	"github.com/Sternrassler/sec-api-client/pkg/edgar"
	"github.com/Sternrassler/sec-api-client/pkg/ratelimit"
	"github.com/Sternrassler/sec-api-client/pkg/report"
	"github.com/Sternrassler/sec-api-client/pkg/retriever"
)

const apiKey = "integration-key"

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newClient(t *testing.T, mock *testutil.MockSecAPI, redisClient *redis.Client) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig(apiKey)
	cfg.BaseURL = mock.URL()
	cfg.Redis = redisClient
	cfg.RequestsPerSecond = 0
	cfg.Retry = client.RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    5 * time.Millisecond,
		MaxBackoff:        50 * time.Millisecond,
		BackoffMultiplier: 2,
		Jitter:            true,
	}

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// TestFullReportFlow tests the complete flow: metadata -> parallel section fetch -> cache -> markers.
func TestFullReportFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockSecAPI()
	defer mock.Close()
	mock.APIKey = apiKey
	mock.SetFilings(testutil.NewFiling("10-Q", "A", "0001090872-22-000108",
		"https://www.sec.gov/ix?doc=/Archives/edgar/data/1090872/a-10q.htm"))
	for _, section := range edgar.FormSections(edgar.Form10Q) {
		mock.SetSectionHTML(string(section), "<p>"+string(section)+"</p>")
	}

	c := newClient(t, mock, redisClient)
	r := retriever.New(c, retriever.WithLogger(zerolog.Nop()))
	ctx := context.Background()

	rep, err := r.GetLatestReport(ctx, edgar.Form10Q, "A", retriever.Options{Parallel: true, Workers: 4})
	if err != nil {
		t.Fatalf("GetLatestReport failed: %v", err)
	}

	sections, err := report.Split(rep.HTML())
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(sections) != 11 {
		t.Fatalf("Sections = %d, want 11", len(sections))
	}
	for i, section := range edgar.FormSections(edgar.Form10Q) {
		if sections[i].Type != section {
			t.Errorf("section %d = %s, want %s", i, sections[i].Type, section)
		}
	}
	if mock.GetMaxInFlight() > 4 {
		t.Errorf("Max in-flight = %d, want <= 4", mock.GetMaxInFlight())
	}

	// Every section is now cached; a second run only queries metadata.
	before := mock.GetRequestCount()
	if _, err := r.GetLatestReport(ctx, edgar.Form10Q, "A", retriever.Options{Parallel: true, Workers: 4}); err != nil {
		t.Fatalf("Second GetLatestReport failed: %v", err)
	}
	if got := mock.GetRequestCount() - before; got != 1 {
		t.Errorf("Second run requests = %d, want 1 (metadata only)", got)
	}
}

// TestCacheKeysOmitToken tests that the API key never reaches Redis.
func TestCacheKeysOmitToken(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockSecAPI()
	defer mock.Close()
	mock.SetSectionHTML("1A", "<p>risk</p>")

	c := newClient(t, mock, redisClient)
	ctx := context.Background()

	if _, err := c.ExtractSection(ctx, "https://www.sec.gov/a.htm", edgar.Form10K1A); err != nil {
		t.Fatalf("ExtractSection failed: %v", err)
	}

	keys, err := redisClient.Keys(ctx, cache.KeyPrefix+":*").Result()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("Keys = %v, want exactly one", keys)
	}
	if strings.Contains(keys[0], apiKey) {
		t.Errorf("Cache key contains API key: %s", keys[0])
	}
}

// TestSharedCooldown tests that a 429 seen by one client pauses another.
func TestSharedCooldown(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockSecAPI()
	defer mock.Close()
	mock.SetSection("1", testutil.NewRateLimitResponse("1"), testutil.NewHTMLResponse("<p>ok</p>"))

	c := newClient(t, mock, redisClient)
	observer := ratelimit.NewTracker(redisClient, ratelimit.Config{}, zerolog.Nop())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := c.ExtractSection(ctx, "https://www.sec.gov/a.htm", edgar.Form10K1)
		done <- err
	}()

	deadline := time.After(2 * time.Second)
	for {
		state, err := observer.GetState(ctx)
		if err != nil {
			t.Fatalf("GetState failed: %v", err)
		}
		if state.InCooldown() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Cooldown never became visible in Redis")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := <-done; err != nil {
		t.Fatalf("ExtractSection failed: %v", err)
	}

	state, err := observer.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state.Consecutive429 != 0 {
		t.Errorf("Consecutive429 = %d, want 0 after success", state.Consecutive429)
	}
}

// TestRetry5xxErrors tests that server errors are retried and then cached.
func TestRetry5xxErrors(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockSecAPI()
	defer mock.Close()
	mock.SetSection("7", testutil.NewServerErrorResponse(), testutil.NewServerErrorResponse(), testutil.NewHTMLResponse("<p>mdna</p>"))

	c := newClient(t, mock, redisClient)

	html, err := c.ExtractSection(context.Background(), "https://www.sec.gov/a.htm", edgar.Form10K7)
	if err != nil {
		t.Fatalf("ExtractSection failed: %v", err)
	}
	if html != "<p>mdna</p>" {
		t.Errorf("html = %q", html)
	}
	if got := mock.GetSectionCount("7"); got != 3 {
		t.Errorf("Requests = %d, want 3", got)
	}
}

// TestNoRetry4xxErrors tests that 404 responses fail fast and are not cached.
func TestNoRetry4xxErrors(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockSecAPI()
	defer mock.Close()

	c := newClient(t, mock, redisClient)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.ExtractSection(ctx, "https://www.sec.gov/a.htm", edgar.Form10K2); err == nil {
			t.Fatal("Expected error for missing section")
		}
	}
	if got := mock.GetSectionCount("2"); got != 2 {
		t.Errorf("Requests = %d, want 2 (no retries, no caching)", got)
	}
}

// TestCacheExpiration tests that expired cache entries are not used.
func TestCacheExpiration(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockSecAPI()
	defer mock.Close()
	mock.SetSectionHTML("1", "<p>business</p>")

	cfg := client.DefaultConfig(apiKey)
	cfg.BaseURL = mock.URL()
	cfg.Redis = redisClient
	cfg.CacheTTL = time.Second
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if _, err := c.ExtractSection(ctx, "https://www.sec.gov/a.htm", edgar.Form10K1); err != nil {
		t.Fatalf("First request failed: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := c.ExtractSection(ctx, "https://www.sec.gov/a.htm", edgar.Form10K1); err != nil {
		t.Fatalf("Second request failed: %v", err)
	}
	if got := mock.GetSectionCount("1"); got != 2 {
		t.Errorf("Requests = %d, want 2 (cache entry expired)", got)
	}
}

// TestRefreshBypassesCache tests that Refresh drops cached sections.
func TestRefreshBypassesCache(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockSecAPI()
	defer mock.Close()
	mock.SetSection("1", testutil.NewHTMLResponse("<p>v1</p>"), testutil.NewHTMLResponse("<p>v2</p>"))

	c := newClient(t, mock, redisClient)
	r := retriever.New(c, retriever.WithLogger(zerolog.Nop()))
	ctx := context.Background()
	opts := retriever.Options{Sections: []edgar.SectionType{edgar.Form10K1}}

	first, err := r.GetReport(ctx, edgar.Form10K, "https://www.sec.gov/a.htm", opts)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	cached, err := r.GetReport(ctx, edgar.Form10K, "https://www.sec.gov/a.htm", opts)
	if err != nil {
		t.Fatalf("Cached GetReport failed: %v", err)
	}
	if cached.Sections[0].HTML != first.Sections[0].HTML {
		t.Errorf("Cached HTML = %q, want %q", cached.Sections[0].HTML, first.Sections[0].HTML)
	}

	opts.Refresh = true
	fresh, err := r.GetReport(ctx, edgar.Form10K, "https://www.sec.gov/a.htm", opts)
	if err != nil {
		t.Fatalf("Refreshed GetReport failed: %v", err)
	}
	if fresh.Sections[0].HTML != "<p>v2</p>" {
		t.Errorf("Refreshed HTML = %q, want <p>v2</p>", fresh.Sections[0].HTML)
	}
	if got := mock.GetSectionCount("1"); got != 2 {
		t.Errorf("Requests = %d, want 2", got)
	}
}
