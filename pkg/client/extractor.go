package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Sternrassler/sec-api-client/pkg/cache"
	"github.com/Sternrassler/sec-api-client/pkg/edgar"
)

const extractorPath = "/extractor"

// ExtractSection fetches the HTML of one section of a filing through the
// item extraction API. A 404 means the URL is not a filing of the expected
// type or the section id is wrong; it is reported as ErrSectionNotFound
// without retrying.
func (c *Client) ExtractSection(ctx context.Context, filingURL string, section edgar.SectionType) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sectionURL(filingURL, section), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.Do(req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusNotFound:
				return "", fmt.Errorf("%w: the URL may not be a correct filing type or the section id may be wrong "+
					"(filing URL: %s, section id: %s): %w", ErrSectionNotFound, filingURL, section, err)
			case http.StatusForbidden:
				return "", fmt.Errorf("%w: %w", ErrInvalidAPIKey, err)
			}
		}
		return "", fmt.Errorf("extract section %s: %w", section, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read section %s: %w", section, err)
	}

	if isProcessing(body) {
		c.logger.Debug().
			Str("section", string(section)).
			Msg("Extractor reported section still processing")
	}

	return string(body), nil
}

func (c *Client) sectionURL(filingURL string, section edgar.SectionType) string {
	return c.endpointURL(extractorPath, url.Values{
		"url":   []string{filingURL},
		"item":  []string{string(section)},
		"type":  []string{"html"},
		"token": []string{c.config.APIKey},
	})
}

// PurgeSections drops the cached extractor responses of the given sections
// so the next ExtractSection asks the API again. It returns the number of
// entries removed and is a no-op when no cache is configured.
func (c *Client) PurgeSections(ctx context.Context, filingURL string, sections []edgar.SectionType) (int64, error) {
	if c.cache == nil {
		return 0, nil
	}

	keys := make([]cache.CacheKey, 0, len(sections))
	for _, section := range sections {
		u, err := url.Parse(c.sectionURL(filingURL, section))
		if err != nil {
			return 0, fmt.Errorf("section %s url: %w", section, err)
		}
		keys = append(keys, cache.CacheKey{Endpoint: u.Path, QueryParams: u.Query()})
	}

	n, err := c.cache.DeleteAll(ctx, keys...)
	if err != nil {
		return 0, err
	}
	c.logger.Debug().
		Str("url", filingURL).
		Int64("purged", n).
		Msg("Purged cached sections")
	return n, nil
}
