package cache

import (
	"net/url"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "endpoint only",
			key:  CacheKey{Endpoint: "/extractor"},
			want: "secapi:extractor",
		},
		{
			name: "query params sorted",
			key: CacheKey{
				Endpoint: "/extractor",
				QueryParams: url.Values{
					"url":  []string{"https://www.sec.gov/a.htm"},
					"item": []string{"1A"},
					"type": []string{"html"},
				},
			},
			want: "secapi:extractor:item=1A:type=html:url=https://www.sec.gov/a.htm",
		},
		{
			name: "token dropped",
			key: CacheKey{
				Endpoint: "/extractor",
				QueryParams: url.Values{
					"item":  []string{"7"},
					"token": []string{"secret"},
				},
			},
			want: "secapi:extractor:item=7",
		},
		{
			name: "empty endpoint",
			key:  CacheKey{QueryParams: url.Values{"a": []string{"b"}}},
			want: "secapi:a=b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("CacheKey.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	key := CacheKey{
		Endpoint: "/extractor",
		QueryParams: url.Values{
			"url":  []string{"u"},
			"item": []string{"1"},
			"type": []string{"html"},
		},
	}

	first := key.String()
	for i := 0; i < 20; i++ {
		if got := key.String(); got != first {
			t.Fatalf("CacheKey.String() not deterministic: %q vs %q", got, first)
		}
	}
}
