package client

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Sternrassler/sec-api-client/internal/testutil"
	"github.com/Sternrassler/sec-api-client/pkg/edgar"
)

func TestQueryLatestFiling(t *testing.T) {
	mock := testutil.NewMockSecAPI()
	defer mock.Close()
	mock.APIKey = testAPIKey
	mock.SetFilings(testutil.NewFiling("10-K", "AAPL", "0000320193-22-000108",
		"https://www.sec.gov/ix?doc=/Archives/edgar/data/320193/000032019322000108/aapl-20220924.htm"))

	c := newTestClient(t, mock.URL())

	filing, err := c.QueryLatestFiling(context.Background(), edgar.Form10K, "ticker", "AAPL")
	if err != nil {
		t.Fatalf("QueryLatestFiling() error = %v", err)
	}
	if filing.AccessionNo != "0000320193-22-000108" {
		t.Errorf("AccessionNo = %q", filing.AccessionNo)
	}

	wantURL := "https://www.sec.gov/Archives/edgar/data/320193/000032019322000108/aapl-20220924.htm"
	if got := filing.PrimaryDocumentURL(); got != wantURL {
		t.Errorf("PrimaryDocumentURL() = %q, want %q", got, wantURL)
	}

	query := mock.GetLastQuery()
	if query["from"] != "0" || query["size"] != "1" {
		t.Errorf("paging = from %v size %v, want 0 and 1", query["from"], query["size"])
	}
	clause := query["query"].(map[string]any)["query_string"].(map[string]any)["query"]
	if clause != `ticker:"AAPL" AND formType:"10-K"` {
		t.Errorf("query = %v", clause)
	}
	sort := query["sort"].([]any)[0].(map[string]any)["filedAt"].(map[string]any)["order"]
	if sort != "desc" {
		t.Errorf("sort order = %v, want desc", sort)
	}
}

func TestQueryLatestFiling_NoFilings(t *testing.T) {
	mock := testutil.NewMockSecAPI()
	defer mock.Close()

	c := newTestClient(t, mock.URL())

	_, err := c.QueryLatestFiling(context.Background(), edgar.Form10Q, "ticker", "NOPE")
	if !errors.Is(err, ErrNoFilings) {
		t.Fatalf("error = %v, want ErrNoFilings", err)
	}
	want := `no filings found: no 10-Q found for ticker="NOPE"`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestQueryLatestFiling_InvalidAPIKey(t *testing.T) {
	mock := testutil.NewMockSecAPI()
	defer mock.Close()
	mock.APIKey = "other"

	c := newTestClient(t, mock.URL())

	_, err := c.QueryLatestFiling(context.Background(), edgar.Form10K, "ticker", "AAPL")
	if !errors.Is(err, ErrInvalidAPIKey) {
		t.Fatalf("error = %v, want ErrInvalidAPIKey", err)
	}
}

func TestQueryLatestFiling_RequestError(t *testing.T) {
	mock := testutil.NewMockSecAPI()
	defer mock.Close()
	mock.SetQueryResponse(testutil.NewStatusResponse(http.StatusBadRequest))

	c := newTestClient(t, mock.URL())

	_, err := c.QueryLatestFiling(context.Background(), edgar.Form10K, "ticker", "AAPL")
	if !errors.Is(err, ErrRequest) {
		t.Fatalf("error = %v, want ErrRequest", err)
	}
	if StatusCode(err) != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", StatusCode(err))
	}
}

func TestQueryLatestFiling_RetriesWithBody(t *testing.T) {
	mock := testutil.NewMockSecAPI()
	defer mock.Close()
	mock.SetQueryResponse(testutil.NewServerErrorResponse())

	c := newTestClient(t, mock.URL())

	_, err := c.QueryLatestFiling(context.Background(), edgar.Form10K, "ticker", "AAPL")
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("error = %v, want ErrRetryExhausted", err)
	}
	// Every attempt must carry the JSON body, otherwise the mock answers 400.
	if mock.GetLastQuery() == nil {
		t.Error("retried request lost its body")
	}
	if got := mock.GetRequestCount(); got != 4 {
		t.Errorf("requests = %d, want 4", got)
	}
}

func TestNormalizeFilingURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			"https://www.sec.gov/ix?doc=/Archives/edgar/data/1/a.htm",
			"https://www.sec.gov/Archives/edgar/data/1/a.htm",
		},
		{
			"https://www.sec.gov/ix.xhtml?doc=/Archives/edgar/data/1/a.htm",
			"https://www.sec.gov/Archives/edgar/data/1/a.htm",
		},
		{
			"https://www.sec.gov/Archives/edgar/data/1/a.htm",
			"https://www.sec.gov/Archives/edgar/data/1/a.htm",
		},
	}

	for _, tt := range tests {
		if got := NormalizeFilingURL(tt.in); got != tt.want {
			t.Errorf("NormalizeFilingURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrimaryDocumentURL_Fallbacks(t *testing.T) {
	f := &Filing{
		FormType: "8-K",
		DocumentFormatFiles: []DocumentFile{
			{Type: "EX-99.1", DocumentURL: "https://www.sec.gov/ex99.htm"},
			{Type: "8-K", DocumentURL: "https://www.sec.gov/main.htm"},
		},
	}
	if got := f.PrimaryDocumentURL(); got != "https://www.sec.gov/main.htm" {
		t.Errorf("matching type: got %q", got)
	}

	f.DocumentFormatFiles = f.DocumentFormatFiles[:1]
	if got := f.PrimaryDocumentURL(); got != "https://www.sec.gov/ex99.htm" {
		t.Errorf("first document: got %q", got)
	}

	f.DocumentFormatFiles = nil
	f.LinkToFilingDetails = "https://www.sec.gov/details.htm"
	if got := f.PrimaryDocumentURL(); got != "https://www.sec.gov/details.htm" {
		t.Errorf("details link: got %q", got)
	}
}
