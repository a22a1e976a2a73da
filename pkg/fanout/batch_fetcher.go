package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/sec-api-client/pkg/edgar"
	"github.com/Sternrassler/sec-api-client/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var sectionsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "secapi_sections_fetched_total",
	Help: "Total number of filing sections fetched by outcome",
}, []string{"status"})

// DefaultWorkers is the pool size used when Config.Workers is not set.
const DefaultWorkers = 6

// Config holds batch fetcher configuration
type Config struct {
	// Workers is the maximum number of parallel extractor requests
	Workers int

	// Timeout per section fetch. Zero leaves it to the client.
	Timeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers: DefaultWorkers,
	}
}

// SectionFetcher is implemented by the sec-api.io client.
type SectionFetcher interface {
	ExtractSection(ctx context.Context, filingURL string, section edgar.SectionType) (string, error)
}

// BatchFetcher handles parallel fetching of the sections of a filing
type BatchFetcher struct {
	fetcher SectionFetcher
	config  Config
	logger  zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher SectionFetcher, config Config) *BatchFetcher {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.Timeout < 0 {
		config.Timeout = 0
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger(logging.ComponentFanout),
	}
}

// FetchSections fetches every section of filingURL and returns the HTML
// bodies in the order of sections. The first failing section aborts the
// batch; its error is returned wrapped with the section id.
func (bf *BatchFetcher) FetchSections(ctx context.Context, filingURL string, sections []edgar.SectionType) ([]string, error) {
	results := make([]string, len(sections))
	if len(sections) == 0 {
		return results, nil
	}

	start := time.Now()
	workers := min(bf.config.Workers, len(sections))

	bf.logger.Debug().
		Str("url", filingURL).
		Int("sections", len(sections)).
		Int("workers", workers).
		Msg("Starting section fetch")

	var err error
	if workers == 1 {
		err = bf.fetchSequential(ctx, filingURL, sections, results)
	} else {
		err = bf.fetchParallel(ctx, filingURL, sections, results, workers)
	}
	if err != nil {
		return nil, err
	}

	bf.logger.Debug().
		Str("url", filingURL).
		Int("sections", len(sections)).
		Dur("duration", time.Since(start)).
		Msg("Section fetch complete")

	return results, nil
}

func (bf *BatchFetcher) fetchSequential(ctx context.Context, filingURL string, sections []edgar.SectionType, results []string) error {
	for i, section := range sections {
		html, err := bf.fetchOne(ctx, filingURL, section)
		if err != nil {
			return err
		}
		results[i] = html
	}
	return nil
}

func (bf *BatchFetcher) fetchParallel(ctx context.Context, filingURL string, sections []edgar.SectionType, results []string, workers int) error {
	// All indices fit into the buffer, so the queue never blocks.
	queue := make(chan int, len(sections))
	for i := range sections {
		queue <- i
	}
	close(queue)

	g, gctx := errgroup.WithContext(ctx)
	for workerID := 0; workerID < workers; workerID++ {
		g.Go(func() error {
			return bf.worker(gctx, filingURL, sections, results, queue, workerID)
		})
	}
	return g.Wait()
}

// worker processes section indices from the queue. Each index is written
// by exactly one worker.
func (bf *BatchFetcher) worker(ctx context.Context, filingURL string, sections []edgar.SectionType, results []string, queue <-chan int, workerID int) error {
	processed := 0

	for idx := range queue {
		select {
		case <-ctx.Done():
			bf.logger.Debug().
				Int("worker_id", workerID).
				Int("sections_processed", processed).
				Msg("Worker stopping (context cancelled)")
			return ctx.Err()
		default:
		}

		html, err := bf.fetchOne(ctx, filingURL, sections[idx])
		if err != nil {
			bf.logger.Debug().
				Err(err).
				Int("worker_id", workerID).
				Str("section", string(sections[idx])).
				Msg("Worker stopping (section failed)")
			return err
		}
		results[idx] = html
		processed++
	}

	if processed > 0 {
		bf.logger.Debug().
			Int("worker_id", workerID).
			Int("sections_processed", processed).
			Msg("Worker completed")
	}
	return nil
}

func (bf *BatchFetcher) fetchOne(ctx context.Context, filingURL string, section edgar.SectionType) (string, error) {
	if bf.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, bf.config.Timeout)
		defer cancel()
	}

	html, err := bf.fetcher.ExtractSection(ctx, filingURL, section)
	if err != nil {
		sectionsFetched.WithLabelValues("error").Inc()
		bf.logger.Warn().
			Err(err).
			Str("section", string(section)).
			Msg("Section fetch failed")
		return "", fmt.Errorf("section %s: %w", section, err)
	}

	sectionsFetched.WithLabelValues("ok").Inc()
	return html, nil
}
