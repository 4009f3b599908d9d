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
			name: "simple endpoint no params",
			key:  CacheKey{Endpoint: "user"},
			want: "wanikani:user",
		},
		{
			name: "slashes trimmed",
			key:  CacheKey{Endpoint: "/subjects/440/"},
			want: "wanikani:subjects/440",
		},
		{
			name: "endpoint with query params",
			key: CacheKey{
				Endpoint: "subjects",
				Params:   url.Values{"types": []string{"kanji"}},
			},
			want: "wanikani:subjects?types=kanji",
		},
		{
			name: "multiple query params (sorted)",
			key: CacheKey{
				Endpoint: "assignments",
				Params: url.Values{
					"subject_types": []string{"radical"},
					"levels":        []string{"1,2"},
				},
			},
			want: "wanikani:assignments?levels=1%2C2&subject_types=radical",
		},
		{
			name: "repeated values kept in order",
			key: CacheKey{
				Endpoint: "subjects",
				Params:   url.Values{"ids": []string{"1", "2", "3"}},
			},
			want: "wanikani:subjects?ids=1&ids=2&ids=3",
		},
		{
			name: "presence-only flag",
			key: CacheKey{
				Endpoint: "assignments",
				Params:   url.Values{"in_review": []string{""}},
			},
			want: "wanikani:assignments?in_review=",
		},
		{
			name: "scoped key",
			key: CacheKey{
				Endpoint: "summary",
				Scope:    "9f2c6a0d41b7e3aa",
			},
			want: "wanikani:summary:scope=9f2c6a0d41b7e3aa",
		},
		{
			name: "complex key with all parts",
			key: CacheKey{
				Endpoint: "/reviews/",
				Params: url.Values{
					"updated_after": []string{"2024-01-01T00:00:00Z"},
					"ids":           []string{"7,8"},
				},
				Scope: "abc",
			},
			want: "wanikani:reviews?ids=7%2C8&updated_after=2024-01-01T00%3A00%3A00Z:scope=abc",
		},
		{
			name: "separators in endpoint escaped",
			key:  CacheKey{Endpoint: "subjects:x?y"},
			want: "wanikani:subjects%3Ax%3Fy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestCacheKey_Determinism ensures same input always produces same key
func TestCacheKey_Determinism(t *testing.T) {
	key := CacheKey{
		Endpoint: "assignments",
		Params: url.Values{
			"levels":        []string{"1,2,3"},
			"subject_types": []string{"kanji"},
			"started":       []string{"true"},
		},
		Scope: "deadbeef",
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		if got := key.String(); got != first {
			t.Errorf("iteration %d = %v, want %v (not deterministic)", i, got, first)
		}
	}
}

func TestCacheKey_ParamOrderIndependent(t *testing.T) {
	a := url.Values{}
	a.Set("levels", "1")
	a.Set("types", "kanji")

	b := url.Values{}
	b.Set("types", "kanji")
	b.Set("levels", "1")

	ka := CacheKey{Endpoint: "subjects", Params: a}.String()
	kb := CacheKey{Endpoint: "subjects", Params: b}.String()
	if ka != kb {
		t.Errorf("keys differ by insertion order: %q vs %q", ka, kb)
	}
}

func TestCacheKey_ScopeSeparatesTokens(t *testing.T) {
	a := CacheKey{Endpoint: "user", Scope: "aaaa"}.String()
	b := CacheKey{Endpoint: "user", Scope: "bbbb"}.String()
	if a == b {
		t.Errorf("different scopes produced the same key %q", a)
	}
}

// TestCacheKey_Distinct checks that requests differing only in how
// separators appear in names and values get different keys.
func TestCacheKey_Distinct(t *testing.T) {
	tests := []struct {
		name string
		a, b CacheKey
	}{
		{
			name: "separator inside a value",
			a:    CacheKey{Endpoint: "subjects", Params: url.Values{"slugs": {"x:types=kanji"}}},
			b:    CacheKey{Endpoint: "subjects", Params: url.Values{"slugs": {"x"}, "types": {"kanji"}}},
		},
		{
			name: "comma inside one value vs repeated values",
			a:    CacheKey{Endpoint: "subjects", Params: url.Values{"ids": {"1,2"}}},
			b:    CacheKey{Endpoint: "subjects", Params: url.Values{"ids": {"1", "2"}}},
		},
		{
			name: "ampersand inside a value",
			a:    CacheKey{Endpoint: "subjects", Params: url.Values{"slugs": {"a&types=b"}}},
			b:    CacheKey{Endpoint: "subjects", Params: url.Values{"slugs": {"a"}, "types": {"b"}}},
		},
		{
			name: "scope text inside the endpoint",
			a:    CacheKey{Endpoint: "user:scope=abc"},
			b:    CacheKey{Endpoint: "user", Scope: "abc"},
		},
		{
			name: "query text inside the endpoint",
			a:    CacheKey{Endpoint: "subjects?types=kanji"},
			b:    CacheKey{Endpoint: "subjects", Params: url.Values{"types": {"kanji"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ka, kb := tt.a.String(), tt.b.String(); ka == kb {
				t.Errorf("both requests map to %q", ka)
			}
		})
	}
}
