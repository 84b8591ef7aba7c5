// Package urlinfo extracts downloadable URLs from free-form message text
// and matches them against a configured site allowlist.
package urlinfo

import (
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// Info summarizes the URLs found in a piece of text. URL is set only when
// exactly one URL was found; Allowed reports whether that URL's site is on
// the allowlist. TotalURLs lets callers phrase "no URLs" and "too many
// URLs" distinctly.
type Info struct {
	URL       string
	Allowed   bool
	TotalURLs int
}

// Allowlist is a set of base domains permitted for download.
type Allowlist map[string]struct{}

// NewAllowlist builds an allowlist from a comma-separated spec like
// "youtube.com,tiktok.com". Entries are trimmed; empties dropped.
func NewAllowlist(spec string) Allowlist {
	list := make(Allowlist)
	for _, entry := range strings.Split(spec, ",") {
		if site := strings.ToLower(strings.TrimSpace(entry)); site != "" {
			list[site] = struct{}{}
		}
	}
	return list
}

// Sites returns the allowlisted domains, for display.
func (a Allowlist) Sites() []string {
	sites := make([]string, 0, len(a))
	for site := range a {
		sites = append(sites, site)
	}
	return sites
}

// Find scans text for URLs. The allowlist is checked by base domain, so
// vm.tiktok.com matches an allowlist entry of tiktok.com.
func Find(text string, allowlist Allowlist) Info {
	matches := urlPattern.FindAllString(text, -1)

	info := Info{TotalURLs: len(matches)}
	if len(matches) != 1 {
		return info
	}

	raw := strings.TrimRight(matches[0], ".,;:!?)")
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return Info{}
	}

	info.URL = raw
	_, info.Allowed = allowlist[baseDomain(parsed.Hostname())]
	return info
}

// baseDomain reduces a hostname to its last two labels:
// vm.tiktok.com → tiktok.com.
func baseDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
