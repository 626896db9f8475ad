package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Map(t *testing.T) {
	d := Defaults{
		Accept:     "application/json",
		Referer:    "https://example.test/",
		Connection: "",
		Extra:      map[string]string{"X-Trace": "abc"},
	}

	assert.Equal(t, map[string]string{
		"Accept":  "application/json",
		"Referer": "https://example.test/",
		"X-Trace": "abc",
	}, d.Map())
}

func TestResolve(t *testing.T) {
	d := Defaults{
		UserAgent: "default-agent",
		Accept:    "application/json",
		Referer:   "https://example.test/",
	}

	tests := []struct {
		name      string
		overrides map[string]string
		cookie    string
		expected  map[string]string
	}{
		{
			name:      "no overrides",
			overrides: nil,
			expected: map[string]string{
				"User-Agent": "default-agent",
				"Accept":     "application/json",
				"Referer":    "https://example.test/",
			},
		},
		{
			name:      "override replaces default case-insensitively",
			overrides: map[string]string{"user-agent": "custom"},
			expected: map[string]string{
				"user-agent": "custom",
				"Accept":     "application/json",
				"Referer":    "https://example.test/",
			},
		},
		{
			name:      "empty override removes default",
			overrides: map[string]string{"Referer": ""},
			expected: map[string]string{
				"User-Agent": "default-agent",
				"Accept":     "application/json",
			},
		},
		{
			name:      "cookie merged last",
			overrides: map[string]string{"cookie": "a=1"},
			cookie:    "session=xyz",
			expected: map[string]string{
				"User-Agent": "default-agent",
				"Accept":     "application/json",
				"Referer":    "https://example.test/",
				"Cookie":     "session=xyz",
			},
		},
		{
			name:      "empty cookie leaves header alone",
			overrides: map[string]string{"Cookie": "a=1"},
			cookie:    "",
			expected: map[string]string{
				"User-Agent": "default-agent",
				"Accept":     "application/json",
				"Referer":    "https://example.test/",
				"Cookie":     "a=1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(d, tt.overrides, tt.cookie))
		})
	}
}

func TestResolve_DuplicateSpellingsAreDeterministic(t *testing.T) {
	d := Defaults{Accept: "application/json"}
	overrides := map[string]string{
		"ACCEPT": "text/csv",
		"Accept": "text/html",
		"accept": "text/plain",
	}

	for i := 0; i < 50; i++ {
		assert.Equal(t, map[string]string{"accept": "text/plain"}, Resolve(d, overrides, ""))
	}

	removed := map[string]string{"Accept": "text/html", "accept": ""}
	for i := 0; i < 50; i++ {
		assert.Empty(t, Resolve(d, removed, ""))
	}
}

func TestDefaults_MapExtraDuplicateSpellings(t *testing.T) {
	d := Defaults{Extra: map[string]string{"X-Trace": "upper", "x-trace": "lower"}}

	for i := 0; i < 50; i++ {
		assert.Equal(t, map[string]string{"x-trace": "lower"}, d.Map())
	}
}

func TestResolve_DoesNotMutateInputs(t *testing.T) {
	d := Defaults{Extra: map[string]string{"X-A": "1"}}
	overrides := map[string]string{"X-A": "2"}

	_ = Resolve(d, overrides, "c=1")

	assert.Equal(t, map[string]string{"X-A": "1"}, d.Extra)
	assert.Equal(t, map[string]string{"X-A": "2"}, overrides)
}

func TestParseURLList(t *testing.T) {
	text := "  https://a.test/1 \n\n\thttps://b.test/2\r\n   \nhttps://a.test/1\n"

	assert.Equal(t, []string{
		"https://a.test/1",
		"https://b.test/2",
		"https://a.test/1",
	}, ParseURLList(text))
	assert.Empty(t, ParseURLList(" \n \n"))
}

func TestParseHeaderLines(t *testing.T) {
	m, err := ParseHeaderLines([]string{
		"Accept: application/json",
		"X-Token:abc:def",
		"accept: text/plain",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"X-Token": "abc:def",
		"accept":  "text/plain",
	}, m)

	_, err = ParseHeaderLines([]string{"no separator"})
	assert.ErrorContains(t, err, "invalid header")

	_, err = ParseHeaderLines([]string{": value"})
	assert.Error(t, err)
}
