// Package retriever resolves filing metadata and fetches complete reports
// section by section from sec-api.io.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/sec-api-client/pkg/client"
	"github.com/Sternrassler/sec-api-client/pkg/edgar"
	"github.com/Sternrassler/sec-api-client/pkg/fanout"
	"github.com/Sternrassler/sec-api-client/pkg/logging"
	"github.com/Sternrassler/sec-api-client/pkg/report"
)

// AccessionNumberLength is the digit count of an SEC accession number.
const AccessionNumberLength = 18

var (
	// ErrLookupMissing is returned when neither accession number nor ticker is set.
	ErrLookupMissing = errors.New("either accession number or ticker must be provided")

	// ErrLookupAmbiguous is returned when both accession number and ticker are set.
	ErrLookupAmbiguous = errors.New("only one of accession number or ticker must be provided")

	// ErrDocumentTypeNotSupported is returned for forms without a section table.
	ErrDocumentTypeNotSupported = errors.New("document type not supported")

	// ErrInvalidAccessionNumber is returned when no 18 digit run can be found.
	ErrInvalidAccessionNumber = errors.New("invalid accession number")

	// ErrInvalidWorkers is returned for a worker count below one.
	ErrInvalidWorkers = errors.New("workers cannot be less than 1")

	// ErrParallelRequired is returned when several workers are requested
	// without enabling parallel fetching.
	ErrParallelRequired = errors.New("when workers are greater than 1, parallel must be enabled")
)

var (
	digitRunRe           = regexp.MustCompile(`\d+`)
	formattedAccessionRe = regexp.MustCompile(`^\d{10}-\d{2}-\d{6}$`)
)

// API is the part of the sec-api.io client the retriever needs.
type API interface {
	fanout.SectionFetcher
	QueryLatestFiling(ctx context.Context, doc edgar.DocumentType, key, value string) (*client.Filing, error)
}

// Lookup selects a filing either by accession number or as the latest
// filing of a ticker. Exactly one field must be set.
type Lookup struct {
	AccessionNumber string
	Ticker          string
}

// Options controls report retrieval.
type Options struct {
	// Sections to fetch, in output order. Empty means every section of the form.
	Sections []edgar.SectionType

	// Parallel enables the worker pool.
	Parallel bool

	// Workers is the pool size. Zero means one.
	Workers int

	// Refresh drops cached sections before fetching when the API supports it.
	Refresh bool
}

// SectionPurger is implemented by APIs with a response cache.
type SectionPurger interface {
	PurgeSections(ctx context.Context, filingURL string, sections []edgar.SectionType) (int64, error)
}

// Retriever fetches filing metadata and reports.
type Retriever struct {
	api            API
	sectionTimeout time.Duration
	logger         zerolog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger replaces the default component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// WithSectionTimeout bounds each section fetch of a parallel retrieval.
func WithSectionTimeout(d time.Duration) Option {
	return func(r *Retriever) {
		r.sectionTimeout = d
	}
}

// New creates a retriever on top of a sec-api.io client.
func New(api API, opts ...Option) *Retriever {
	r := &Retriever{
		api:    api,
		logger: logging.NewLogger(logging.ComponentRetriever),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ExtractAccessionNumber returns s unchanged when it is already formatted as
// ##########-##-######, as Filing.AccessionNo is. Otherwise it finds the
// longest run of digits in s, which must be exactly 18 digits long, and
// formats it.
func ExtractAccessionNumber(s string) (string, error) {
	if trimmed := strings.TrimSpace(s); formattedAccessionRe.MatchString(trimmed) {
		return trimmed, nil
	}

	longest := ""
	for _, run := range digitRunRe.FindAllString(s, -1) {
		if len(run) > len(longest) {
			longest = run
		}
	}
	if len(longest) != AccessionNumberLength {
		return "", fmt.Errorf("%w %q: expected %d digits", ErrInvalidAccessionNumber, s, AccessionNumberLength)
	}
	return longest[:10] + "-" + longest[10:12] + "-" + longest[12:], nil
}

// RetrieveReportMetadata returns the filing selected by lookup.
func (r *Retriever) RetrieveReportMetadata(ctx context.Context, doc edgar.DocumentType, lookup Lookup) (*client.Filing, error) {
	switch {
	case lookup.AccessionNumber == "" && lookup.Ticker == "":
		return nil, ErrLookupMissing
	case lookup.AccessionNumber != "" && lookup.Ticker != "":
		return nil, ErrLookupAmbiguous
	}
	if !doc.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrDocumentTypeNotSupported, doc)
	}

	key, value := "ticker", lookup.Ticker
	if lookup.AccessionNumber != "" {
		accession, err := ExtractAccessionNumber(lookup.AccessionNumber)
		if err != nil {
			return nil, err
		}
		key, value = "accessionNo", accession
	}

	logger := r.runLogger()
	logger.Debug().
		Str("form_type", string(doc)).
		Str("key", key).
		Str("value", value).
		Msg("Retrieving report metadata")

	filing, err := r.api.QueryLatestFiling(ctx, doc, key, value)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("form_type", string(doc)).
		Str("accession_no", filing.AccessionNo).
		Str("company", filing.CompanyName).
		Msg("Report metadata retrieved")
	return filing, nil
}

// GetReport fetches the requested sections of the filing at url. Sections
// are fetched one after another unless opts.Parallel is set and more than
// one worker is configured. The result keeps the order of opts.Sections.
func (r *Retriever) GetReport(ctx context.Context, doc edgar.DocumentType, url string, opts Options) (*report.Report, error) {
	if !doc.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrDocumentTypeNotSupported, doc)
	}

	workers := opts.Workers
	if workers == 0 {
		workers = 1
	}
	if workers < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidWorkers, opts.Workers)
	}
	if workers > 1 && !opts.Parallel {
		return nil, ErrParallelRequired
	}

	sections := opts.Sections
	if len(sections) == 0 {
		sections = edgar.FormSections(doc)
	}
	for _, section := range sections {
		if !edgar.SectionsFor(doc, section) {
			return nil, fmt.Errorf("%w: %q is not a %s section", edgar.ErrInvalidSection, section, doc)
		}
	}

	url = client.NormalizeFilingURL(url)
	logger := r.runLogger()
	start := time.Now()

	logger.Info().
		Str("form_type", string(doc)).
		Str("url", url).
		Int("sections", len(sections)).
		Int("workers", workers).
		Msg("Fetching report")

	if opts.Refresh {
		if purger, ok := r.api.(SectionPurger); ok {
			n, err := purger.PurgeSections(ctx, url, sections)
			if err != nil {
				return nil, fmt.Errorf("refresh: %w", err)
			}
			logger.Debug().Int64("purged", n).Msg("Dropped cached sections")
		}
	}

	fanoutCfg := fanout.DefaultConfig()
	fanoutCfg.Workers = workers
	fanoutCfg.Timeout = r.sectionTimeout
	fetcher := fanout.NewBatchFetcher(r.api, fanoutCfg)
	htmls, err := fetcher.FetchSections(ctx, url, sections)
	if err != nil {
		logger.Warn().Err(err).Str("url", url).Msg("Report fetch failed")
		return nil, err
	}

	rep, err := report.New(doc, url, sections, htmls)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("url", url).
		Int("sections", len(sections)).
		Dur("duration", time.Since(start)).
		Msg("Report fetched")
	return rep, nil
}

// GetReportHTML is GetReport rendered as a single marked-up document.
func (r *Retriever) GetReportHTML(ctx context.Context, doc edgar.DocumentType, url string, opts Options) (string, error) {
	rep, err := r.GetReport(ctx, doc, url, opts)
	if err != nil {
		return "", err
	}
	return rep.HTML(), nil
}

// GetLatestReport fetches the most recent doc filed under ticker.
func (r *Retriever) GetLatestReport(ctx context.Context, doc edgar.DocumentType, ticker string, opts Options) (*report.Report, error) {
	filing, err := r.RetrieveReportMetadata(ctx, doc, Lookup{Ticker: ticker})
	if err != nil {
		return nil, err
	}

	url := filing.PrimaryDocumentURL()
	if url == "" {
		return nil, fmt.Errorf("filing %s has no document URL", filing.AccessionNo)
	}
	return r.GetReport(ctx, doc, url, opts)
}

func (r *Retriever) runLogger() zerolog.Logger {
	logger, _ := logging.WithRunID(r.logger)
	return logger
}
