package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// HashURL creates a SHA256 hash of a URL string.
// This is useful for creating consistent, safe keys for Redis.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}

// ToAbsoluteURL converts a relative URL to an absolute URL given a base URL.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(relative)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(relURL).String(), nil
}

// NormalizeHost lower-cases host and strips a leading "www.".
func NormalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// HostMatches reports whether host equals domain or is a subdomain of it.
func HostMatches(host, domain string) bool {
	host = NormalizeHost(host)
	domain = NormalizeHost(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// ValidateSourceURL checks that raw is an absolute http(s) URL.
func ValidateSourceURL(raw string) (*url.URL, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &url.Error{Op: "parse", URL: raw, Err: errUnsupportedScheme}
	}
	if u.Host == "" {
		return nil, &url.Error{Op: "parse", URL: raw, Err: errMissingHost}
	}
	return u, nil
}
