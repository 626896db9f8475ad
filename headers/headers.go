// Package headers resolves the header set shared by every request of one aggregation.
package headers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// CookieHeader is the key the optional cookie is merged under.
const CookieHeader = "Cookie"

// Defaults is the header template applied before caller overrides.
// Empty fields are not sent.
type Defaults struct {
	Host           string            `yaml:"host" json:"host,omitempty"`
	UserAgent      string            `yaml:"user_agent" json:"user_agent,omitempty"`
	Accept         string            `yaml:"accept" default:"application/json, text/plain, */*" json:"accept,omitempty"`
	AcceptLanguage string            `yaml:"accept_language" default:"en-US" json:"accept_language,omitempty"`
	AcceptEncoding string            `yaml:"accept_encoding" default:"gzip, deflate, br, zstd" json:"accept_encoding,omitempty"`
	Referer        string            `yaml:"referer" json:"referer,omitempty"`
	XRequestedWith string            `yaml:"x_requested_with" json:"x_requested_with,omitempty"`
	Connection     string            `yaml:"connection" default:"keep-alive" json:"connection,omitempty"`
	SecFetchDest   string            `yaml:"sec_fetch_dest" json:"sec_fetch_dest,omitempty"`
	SecFetchMode   string            `yaml:"sec_fetch_mode" json:"sec_fetch_mode,omitempty"`
	SecFetchSite   string            `yaml:"sec_fetch_site" json:"sec_fetch_site,omitempty"`
	Extra          map[string]string `yaml:"extra" json:"extra,omitempty"`
}

// Map returns the non-empty defaults keyed by header name, Extra last.
func (d Defaults) Map() map[string]string {
	named := []struct {
		key   string
		value string
	}{
		{"Host", d.Host},
		{"User-Agent", d.UserAgent},
		{"Accept", d.Accept},
		{"Accept-Language", d.AcceptLanguage},
		{"Accept-Encoding", d.AcceptEncoding},
		{"Referer", d.Referer},
		{"X-Requested-With", d.XRequestedWith},
		{"Connection", d.Connection},
		{"Sec-Fetch-Dest", d.SecFetchDest},
		{"Sec-Fetch-Mode", d.SecFetchMode},
		{"Sec-Fetch-Site", d.SecFetchSite},
	}

	m := make(map[string]string, len(named)+len(d.Extra))
	for _, h := range named {
		if h.value != "" {
			m[h.key] = h.value
		}
	}
	for _, k := range sortedKeys(d.Extra) {
		set(m, k, d.Extra[k])
	}
	return m
}

// Resolve merges overrides onto the defaults and adds cookie under Cookie.
// Names match case-insensitively; an override replaces the default, and an
// empty override value removes it. Overrides are applied in byte order of
// their names, so of two spellings of one header the lower-case one wins.
func Resolve(d Defaults, overrides map[string]string, cookie string) map[string]string {
	m := d.Map()
	for _, k := range sortedKeys(overrides) {
		set(m, k, overrides[k])
	}
	if cookie != "" {
		set(m, CookieHeader, cookie)
	}
	return m
}

func set(m map[string]string, key, value string) {
	canonical := http.CanonicalHeaderKey(key)
	for existing := range m {
		if http.CanonicalHeaderKey(existing) == canonical {
			delete(m, existing)
		}
	}
	if value != "" {
		m[key] = value
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseURLList splits newline separated input into URLs, trimming each line
// and dropping blank ones. Order and duplicates are kept.
func ParseURLList(text string) []string {
	urls := []string{}
	for _, line := range strings.Split(text, "\n") {
		if u := strings.TrimSpace(line); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// ParseHeaderLines parses "Name: value" lines into a header map. Later lines
// win over earlier ones with the same name.
func ParseHeaderLines(lines []string) (map[string]string, error) {
	m := make(map[string]string, len(lines))
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.Newf("invalid header %q: expected \"Name: value\"", line)
		}
		set(m, name, strings.TrimSpace(value))
	}
	return m, nil
}
