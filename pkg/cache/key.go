package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every key written by the cache.
const KeyPrefix = "secapi"

// ignoredParams never take part in a key. The token is a credential and
// must not end up in Redis.
var ignoredParams = map[string]bool{
	"token": true,
}

// CacheKey identifies a cached response.
type CacheKey struct {
	// Endpoint is the request path (e.g., "/extractor")
	Endpoint string

	// QueryParams are the request query parameters
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: secapi:endpoint:param1=val1:param2=val2
//
// Example:
//
//	secapi:extractor:item=1A:type=html:url=https://www.sec.gov/...
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			if ignoredParams[strings.ToLower(key)] {
				continue
			}
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
