package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sternrassler/sec-api-client/pkg/edgar"
)

// Filing is the metadata of a single filing as returned by the query API.
type Filing struct {
	ID                  string         `json:"id"`
	AccessionNo         string         `json:"accessionNo"`
	CIK                 string         `json:"cik"`
	Ticker              string         `json:"ticker"`
	CompanyName         string         `json:"companyName"`
	CompanyNameLong     string         `json:"companyNameLong"`
	FormType            string         `json:"formType"`
	Description         string         `json:"description"`
	FiledAt             string         `json:"filedAt"`
	PeriodOfReport      string         `json:"periodOfReport,omitempty"`
	LinkToTxt           string         `json:"linkToTxt"`
	LinkToHTML          string         `json:"linkToHtml"`
	LinkToXBRL          string         `json:"linkToXbrl,omitempty"`
	LinkToFilingDetails string         `json:"linkToFilingDetails"`
	DocumentFormatFiles []DocumentFile `json:"documentFormatFiles,omitempty"`
}

// DocumentFile is one document of a filing.
type DocumentFile struct {
	Sequence    string `json:"sequence"`
	Description string `json:"description"`
	DocumentURL string `json:"documentUrl"`
	Type        string `json:"type"`
	Size        string `json:"size"`
}

// inlineViewerPrefixes wrap primary documents in the SEC inline XBRL viewer.
var inlineViewerPrefixes = []string{
	"https://www.sec.gov/ix?doc=/",
	"https://www.sec.gov/ix.xhtml?doc=/",
}

// NormalizeFilingURL strips the inline XBRL viewer prefix so the URL points
// at the document itself, which is what the extractor expects.
func NormalizeFilingURL(raw string) string {
	for _, prefix := range inlineViewerPrefixes {
		if strings.HasPrefix(raw, prefix) {
			return "https://www.sec.gov/" + strings.TrimPrefix(raw, prefix)
		}
	}
	return raw
}

// PrimaryDocumentURL returns the URL of the main document of the filing:
// the document whose type matches the form type, else the first document,
// else the filing details link.
func (f *Filing) PrimaryDocumentURL() string {
	for _, doc := range f.DocumentFormatFiles {
		if doc.DocumentURL != "" && strings.EqualFold(doc.Type, f.FormType) {
			return NormalizeFilingURL(doc.DocumentURL)
		}
	}
	for _, doc := range f.DocumentFormatFiles {
		if doc.DocumentURL != "" {
			return NormalizeFilingURL(doc.DocumentURL)
		}
	}
	return NormalizeFilingURL(f.LinkToFilingDetails)
}

type queryString struct {
	Query string `json:"query"`
}

type queryClause struct {
	QueryString queryString `json:"query_string"`
}

type sortOrder struct {
	Order string `json:"order"`
}

type queryRequest struct {
	Query queryClause            `json:"query"`
	From  string                 `json:"from"`
	Size  string                 `json:"size"`
	Sort  []map[string]sortOrder `json:"sort"`
}

type queryResponse struct {
	Total struct {
		Value    int    `json:"value"`
		Relation string `json:"relation"`
	} `json:"total"`
	Filings []Filing `json:"filings"`
}

// newLatestFilingQuery builds the search for the most recent filing of doc
// whose key field equals value.
func newLatestFilingQuery(doc edgar.DocumentType, key, value string) queryRequest {
	return queryRequest{
		Query: queryClause{QueryString: queryString{
			Query: fmt.Sprintf(`%s:"%s" AND formType:"%s"`, key, value, doc),
		}},
		From: "0",
		Size: "1",
		Sort: []map[string]sortOrder{{"filedAt": {Order: "desc"}}},
	}
}

// QueryLatestFiling returns the most recently filed doc whose key field (for
// example "ticker" or "accessionNo") equals value.
func (c *Client) QueryLatestFiling(ctx context.Context, doc edgar.DocumentType, key, value string) (*Filing, error) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	payload, err := json.Marshal(newLatestFilingQuery(doc, key, value))
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	target := c.endpointURL("", url.Values{"token": []string{c.config.APIKey}})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		if StatusCode(err) == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %w", ErrInvalidAPIKey, err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer resp.Body.Close()

	var result queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrRequest, err)
	}

	if len(result.Filings) == 0 {
		return nil, fmt.Errorf(`%w: no %s found for %s="%s"`, ErrNoFilings, doc, key, value)
	}

	c.logger.Debug().
		Str("form_type", string(doc)).
		Str("accession_no", result.Filings[0].AccessionNo).
		Msg("Resolved filing metadata")

	return &result.Filings[0], nil
}
