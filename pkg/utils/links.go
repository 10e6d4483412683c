package utils

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	// ErrLocalLink marks links pointing at the local machine, which never
	// resolve to a shared recording.
	ErrLocalLink = errors.New("local link")
)

// ValidateRecordingURL parses raw and accepts only absolute http(s) links
// to a remote host.
func ValidateRecordingURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid URL: no host in %q", raw)
	}
	if IsLocalHost(u.Hostname()) {
		return nil, fmt.Errorf("%w: %s", ErrLocalLink, u.Host)
	}
	return u, nil
}

// IsLocalHost reports whether host names the loopback interface.
func IsLocalHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsUnspecified()
	}
	return false
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// StemFromURL derives a file stem from the last path segment of u.
func StemFromURL(u *url.URL) string {
	var stem string
	if base := path.Base(u.Path); base == "/" || base == "." || base == "" {
		stem = u.Hostname()
	} else {
		stem = strings.TrimSuffix(base, path.Ext(base))
	}
	stem = unsafeChars.ReplaceAllString(stem, "_")
	stem = strings.Trim(stem, "._")
	if stem == "" {
		return "recording"
	}
	return stem
}
