// Package fanout fetches the sections of one filing in parallel.
//
// The extractor API serves one section per request, so a full 10-K is twenty
// round trips. A BatchFetcher spreads those requests over a fixed pool of
// workers and reassembles the results in request order.
//
// Example usage:
//
//	fetcher := fanout.NewBatchFetcher(secClient, fanout.Config{Workers: 4})
//	htmls, err := fetcher.FetchSections(ctx, filingURL, edgar.FormSections(edgar.Form10K))
//
// The batch fetcher:
//   - Starts min(Workers, len(sections)) workers over a queue of section indices
//   - Stores every result at its index so output order equals input order
//   - Cancels outstanding work on the first failure and returns that error
//   - Runs in the caller's goroutine when only one worker is configured
package fanout
