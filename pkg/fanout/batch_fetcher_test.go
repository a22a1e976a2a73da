package fanout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/sec-api-client/pkg/edgar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// stubFetcher answers with "<id>" bodies and records concurrency.
type stubFetcher struct {
	delay   time.Duration
	failOn  edgar.SectionType
	failErr error

	mu       sync.Mutex
	calls    []edgar.SectionType
	inFlight int32
	maxSeen  int32
}

func (s *stubFetcher) ExtractSection(ctx context.Context, _ string, section edgar.SectionType) (string, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&s.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&s.maxSeen, seen, n) {
			break
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, section)
	s.mu.Unlock()

	if section == s.failOn {
		return "", s.failErr
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "<" + string(section) + ">", nil
}

func (s *stubFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func wantBodies(sections []edgar.SectionType) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = "<" + string(s) + ">"
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, 6, DefaultConfig().Workers)
	assert.Zero(t, DefaultConfig().Timeout)

	bf := NewBatchFetcher(&stubFetcher{}, Config{})
	assert.Equal(t, DefaultWorkers, bf.config.Workers)
}

func TestFetchSections_PreservesOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	sections := edgar.FormSections(edgar.Form10K)
	fetcher := &stubFetcher{delay: 2 * time.Millisecond}
	bf := NewBatchFetcher(fetcher, Config{Workers: 5})

	got, err := bf.FetchSections(context.Background(), "https://www.sec.gov/doc.htm", sections)
	require.NoError(t, err)
	assert.Equal(t, wantBodies(sections), got)
	assert.Equal(t, len(sections), fetcher.callCount())
}

func TestFetchSections_BoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	sections := edgar.FormSections(edgar.Form8K)
	fetcher := &stubFetcher{delay: 5 * time.Millisecond}
	bf := NewBatchFetcher(fetcher, Config{Workers: 3})

	_, err := bf.FetchSections(context.Background(), "u", sections)
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&fetcher.maxSeen), int32(3))
	assert.Greater(t, atomic.LoadInt32(&fetcher.maxSeen), int32(1))
}

func TestFetchSections_SingleWorkerIsSequential(t *testing.T) {
	defer goleak.VerifyNone(t)

	sections := edgar.FormSections(edgar.Form10Q)
	fetcher := &stubFetcher{}
	bf := NewBatchFetcher(fetcher, Config{Workers: 1})

	got, err := bf.FetchSections(context.Background(), "u", sections)
	require.NoError(t, err)
	assert.Equal(t, wantBodies(sections), got)
	assert.Equal(t, sections, fetcher.calls)
	assert.Equal(t, int32(1), fetcher.maxSeen)
}

func TestFetchSections_FirstErrorCancels(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("boom")
	sections := edgar.FormSections(edgar.Form10K)
	fetcher := &stubFetcher{delay: 20 * time.Millisecond, failOn: edgar.Form10K1A, failErr: boom}
	bf := NewBatchFetcher(fetcher, Config{Workers: 2})

	got, err := bf.FetchSections(context.Background(), "u", sections)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "section 1A")
	assert.Less(t, fetcher.callCount(), len(sections))
}

func TestFetchSections_SequentialErrorStops(t *testing.T) {
	boom := errors.New("boom")
	sections := []edgar.SectionType{edgar.Form10K1, edgar.Form10K1A, edgar.Form10K2}
	fetcher := &stubFetcher{failOn: edgar.Form10K1A, failErr: boom}
	bf := NewBatchFetcher(fetcher, Config{Workers: 1})

	_, err := bf.FetchSections(context.Background(), "u", sections)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, fetcher.callCount())
}

func TestFetchSections_ContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &stubFetcher{delay: time.Second}
	bf := NewBatchFetcher(fetcher, Config{Workers: 4})

	_, err := bf.FetchSections(ctx, "u", edgar.FormSections(edgar.Form10Q))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchSections_PerSectionTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := &stubFetcher{delay: time.Second}
	bf := NewBatchFetcher(fetcher, Config{Workers: 2, Timeout: 10 * time.Millisecond})

	_, err := bf.FetchSections(context.Background(), "u", []edgar.SectionType{edgar.Form10K1, edgar.Form10K2})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchSections_Empty(t *testing.T) {
	bf := NewBatchFetcher(&stubFetcher{}, DefaultConfig())

	got, err := bf.FetchSections(context.Background(), "u", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
