package crawl

import (
	"fmt"
	"net/url"
	"strings"
)

var skippedExtensions = map[string]struct{}{
	".pdf": {}, ".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {},
	".webp": {}, ".ico": {}, ".css": {}, ".js": {}, ".mp4": {}, ".mp3": {},
	".zip": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".woff": {},
	".woff2": {}, ".ttf": {},
}

// normalizeURL canonicalizes a link for frontier dedup: scheme and host are
// lowercased, the fragment dropped, and the trailing slash trimmed so
// /about and /about/ collapse to one entry.
func normalizeURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u, nil
}

// sameSite reports whether candidate belongs to the crawl's host. The www
// prefix is ignored so www.clinic.com and clinic.com crawl as one site.
func sameSite(seed, candidate *url.URL) bool {
	return strings.TrimPrefix(seed.Host, "www.") == strings.TrimPrefix(candidate.Host, "www.")
}

// crawlable filters out links a same-site HTML crawl should never follow.
func crawlable(raw string) bool {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" || lowered == "#" {
		return false
	}
	for _, prefix := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(lowered, prefix) {
			return false
		}
	}
	if idx := strings.IndexAny(lowered, "?#"); idx >= 0 {
		lowered = lowered[:idx]
	}
	if dot := strings.LastIndex(lowered, "."); dot >= 0 {
		if _, skip := skippedExtensions[lowered[dot:]]; skip {
			return false
		}
	}
	return true
}
