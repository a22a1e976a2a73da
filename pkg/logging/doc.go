// Levels used across the module:
//
// Debug: cache hits and stores, per-section worker progress, extractor
// answers still marked "processing".
//
// Info: report fetched, metadata resolved, server start and stop.
//
// Warn: 429 cooldowns, individual retry attempts, failed sections before the
// batch aborts, cache errors that fall back to the API.
//
// Error: transport failures, exhausted retries, command and handler failures.
//
// Common fields: component, run_id, endpoint, section, status, error_class,
// attempt, backoff, worker_id, ttl.
package logging
