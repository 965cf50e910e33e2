package tabkey

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// InvalidURL stands in for tabs that have no usable URL and no predecessor to borrow from.
const InvalidURL = "urn:invalid"

var localePattern = regexp.MustCompile(`^\w\w(-\w\w)?$`)

// RawTab is the URL view of a live tab that keys are derived from.
type RawTab struct {
	PendingURL string
	URL        string
}

// Factory turns tab URLs into keys.
type Factory struct{}

// Keys derives one key per tab. A tab without a parseable URL reuses the URL of the
// tab before it, or InvalidURL when it is the first.
func (f Factory) Keys(tabs []RawTab) []Key {
	keys := make([]Key, len(tabs))
	var previous *url.URL
	for i, tab := range tabs {
		u := parseURL(tab.PendingURL)
		if u == nil {
			u = parseURL(tab.URL)
		}
		if u == nil {
			u = previous
		}
		if u == nil {
			u, _ = url.Parse(InvalidURL)
		}
		previous = u
		keys[i] = keyFromURL(u)
	}
	return keys
}

// Key derives the key of a single URL.
func (f Factory) Key(rawURL string) Key {
	return f.Keys([]RawTab{{URL: rawURL}})[0]
}

func parseURL(raw string) *url.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		slog.Debug("tabkey could not parse url", "url", raw, "error", err)
		return nil
	}
	return u
}

func keyFromURL(u *url.URL) Key {
	var hostParts []string
	if strings.HasPrefix(u.Host, "[") {
		// IPv6 literals keep their brackets and are a single label.
		hostParts = []string{"[" + strings.ToLower(u.Hostname()) + "]"}
	} else {
		hostParts = strings.Split(strings.ToLower(u.Hostname()), ".")
		if len(hostParts) > 0 && hostParts[0] == "www" {
			hostParts = hostParts[1:]
		}
		if len(hostParts) > 1 {
			hostParts = hostParts[:len(hostParts)-1]
		}
	}

	segments := []string{strings.Join(hostParts, ".")}
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		segments = append(segments, ":"+port)
	}

	path := u.EscapedPath()
	if u.RawPath != "" {
		path = escapePath(u.RawPath)
	}
	if u.Opaque != "" {
		path = u.Opaque
	}
	for _, part := range strings.Split(strings.ToLower(path), "/") {
		if part == "" || localePattern.MatchString(part) {
			continue
		}
		segments = append(segments, "/"+part)
	}

	if u.Fragment != "" {
		for _, part := range strings.Split(strings.ToLower("#"+u.EscapedFragment()), "/") {
			if part == "" {
				continue
			}
			segments = append(segments, "/"+part)
		}
	}

	return New(segments...)
}

// escapePath percent-encodes the bytes a browser would encode in a path while leaving
// existing escapes such as %2F untouched.
func escapePath(raw string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c <= ' ' || c >= 0x7f || strings.IndexByte("\"<>`{}", c) >= 0 {
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&15])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
