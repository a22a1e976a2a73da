// Package testutil provides testing utilities for the sec-api.io client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior of a mocked extractor or query response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockSecAPI is a configurable sec-api.io stand-in. Extractor responses are
// keyed by section id; the query API answers with the configured filings.
type MockSecAPI struct {
	server *httptest.Server
	mu     sync.RWMutex

	// APIKey, when set, is required as the token query parameter.
	APIKey string

	sections  map[string][]MockResponse
	filings   []map[string]any
	queryResp *MockResponse

	// Tracking
	RequestCount  int
	SectionCounts map[string]int
	LastQuery     map[string]any
	LastUserAgent string
	inFlight      int
	MaxInFlight   int
}

// NewMockSecAPI creates and starts a mock server.
func NewMockSecAPI() *MockSecAPI {
	mock := &MockSecAPI{
		sections:      make(map[string][]MockResponse),
		SectionCounts: make(map[string]int),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL, usable as client BaseURL.
func (m *MockSecAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSecAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockSecAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.SectionCounts = make(map[string]int)
	m.LastQuery = nil
	m.MaxInFlight = 0
}

// SetSection queues responses for a section id. Responses are served in
// order; the last one repeats.
func (m *MockSecAPI) SetSection(item string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sections[item] = responses
}

// SetSectionHTML is shorthand for a single 200 response.
func (m *MockSecAPI) SetSectionHTML(item, html string) {
	m.SetSection(item, NewHTMLResponse(html))
}

// SetFilings sets the filings returned by the query API.
func (m *MockSecAPI) SetFilings(filings ...map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filings = filings
}

// SetQueryResponse overrides the query API with a fixed response.
func (m *MockSecAPI) SetQueryResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryResp = &resp
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockSecAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetSectionCount returns how often a section was requested.
func (m *MockSecAPI) GetSectionCount(item string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.SectionCounts[item]
}

// GetMaxInFlight returns the highest number of concurrent extractor requests seen.
func (m *MockSecAPI) GetMaxInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.MaxInFlight
}

// GetLastQuery returns the last decoded query API request body.
func (m *MockSecAPI) GetLastQuery() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

func (m *MockSecAPI) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	m.LastUserAgent = r.Header.Get("User-Agent")
	m.mu.Unlock()

	if m.APIKey != "" && r.URL.Query().Get("token") != m.APIKey {
		http.Error(w, `{"status":403,"error":"Invalid API key"}`, http.StatusForbidden)
		return
	}

	switch {
	case r.URL.Path == "/extractor" && r.Method == http.MethodGet:
		m.handleExtractor(w, r)
	case (r.URL.Path == "/" || r.URL.Path == "") && r.Method == http.MethodPost:
		m.handleQuery(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (m *MockSecAPI) handleExtractor(w http.ResponseWriter, r *http.Request) {
	item := r.URL.Query().Get("item")

	m.mu.Lock()
	count := m.SectionCounts[item]
	m.SectionCounts[item] = count + 1
	queue, ok := m.sections[item]
	m.inFlight++
	if m.inFlight > m.MaxInFlight {
		m.MaxInFlight = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if !ok || len(queue) == 0 {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	resp := queue[len(queue)-1]
	if count < len(queue) {
		resp = queue[count]
	}
	writeResponse(w, resp)
}

func (m *MockSecAPI) handleQuery(w http.ResponseWriter, r *http.Request) {
	var query map[string]any
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.LastQuery = query
	fixed := m.queryResp
	filings := m.filings
	m.mu.Unlock()

	if fixed != nil {
		writeResponse(w, *fixed)
		return
	}

	if filings == nil {
		filings = []map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"total":   map[string]any{"value": len(filings), "relation": "eq"},
		"filings": filings,
	})
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewHTMLResponse creates a 200 OK extractor response.
func NewHTMLResponse(html string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       html,
		Headers:    map[string]string{"Content-Type": "text/html; charset=utf-8"},
	}
}

// NewProcessingResponse mimics the extractor while a filing is still parsed.
func NewProcessingResponse() MockResponse {
	return NewHTMLResponse("processing")
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter string) MockResponse {
	resp := MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status":429,"error":"Too many requests"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
	if retryAfter != "" {
		resp.Headers["Retry-After"] = retryAfter
	}
	return resp
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status":500,"error":"Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewStatusResponse creates a bare response with the given status.
func NewStatusResponse(status int) MockResponse {
	return MockResponse{StatusCode: status, Body: http.StatusText(status)}
}

// NewFiling builds a query API filing record.
func NewFiling(formType, ticker, accessionNo, documentURL string) map[string]any {
	return map[string]any{
		"id":                  "f-" + accessionNo,
		"accessionNo":         accessionNo,
		"cik":                 "1090872",
		"ticker":              ticker,
		"companyName":         "AGILENT TECHNOLOGIES INC",
		"formType":            formType,
		"filedAt":             "2022-12-20T16:11:43-05:00",
		"linkToFilingDetails": documentURL,
		"documentFormatFiles": []map[string]any{
			{"sequence": "1", "description": formType, "documentUrl": documentURL, "type": formType, "size": "1000"},
		},
	}
}
