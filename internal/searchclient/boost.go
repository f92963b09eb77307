package searchclient

import (
	"net/url"
	"strings"
)

// trustedHostnames receive the 1.5x hostname boost. A short curated set
// rather than an exhaustive list, same spirit as the teacher's engine
// allowlists in config.go.
var trustedHostnames = map[string]bool{
	"wikipedia.org":    true,
	"arxiv.org":        true,
	"github.com":       true,
	"nature.com":       true,
	"nih.gov":          true,
	"who.int":          true,
	"gov.uk":           true,
	"europa.eu":        true,
	"ietf.org":         true,
	"w3.org":           true,
	"golang.org":       true,
	"go.dev":           true,
	"stackoverflow.com": true,
}

var docPathMarkers = []string{"/docs/", "/documentation/", "/reference/", "/api/", "/manual/", "/guide/"}
var newsPathMarkers = []string{"/news/", "/article/", "/press/", "/blog/"}

// HostnameBoost returns the deterministic hostname multiplier for rawURL:
// 1.5x for curated trusted hostnames, 1.0x otherwise.
func HostnameBoost(rawURL string) float64 {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 1.0
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	for trusted := range trustedHostnames {
		if host == trusted || strings.HasSuffix(host, "."+trusted) {
			return 1.5
		}
	}
	return 1.0
}

// PathBoost returns the deterministic path multiplier: 1.3x for
// documentation-like paths, 1.1x for news-like paths, 1.0x otherwise.
func PathBoost(rawURL string) float64 {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 1.0
	}
	path := strings.ToLower(u.Path)
	for _, marker := range docPathMarkers {
		if strings.Contains(path, marker) {
			return 1.3
		}
	}
	for _, marker := range newsPathMarkers {
		if strings.Contains(path, marker) {
			return 1.1
		}
	}
	return 1.0
}
