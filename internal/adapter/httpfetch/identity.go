package httpfetch

import (
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
}

// IdentityRotator hands out proxies in turn and user agents at random.
type IdentityRotator struct {
	proxies    []*url.URL
	userAgents []string
	mu         sync.Mutex
	proxyIndex int
}

// NewIdentityRotator parses proxyURLs; invalid entries are skipped. With no
// user agents the built-in browser list is used.
func NewIdentityRotator(proxyURLs, userAgents []string) *IdentityRotator {
	r := &IdentityRotator{userAgents: userAgents}
	if len(r.userAgents) == 0 {
		r.userAgents = defaultUserAgents
	}
	for _, raw := range proxyURLs {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			r.proxies = append(r.proxies, u)
		}
	}
	return r
}

// Proxy is an http.Transport Proxy func rotating through the configured
// proxies sequentially. It returns nil (direct) when none are configured.
func (r *IdentityRotator) Proxy(*http.Request) (*url.URL, error) {
	if len(r.proxies) == 0 {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.proxies[r.proxyIndex]
	r.proxyIndex = (r.proxyIndex + 1) % len(r.proxies)
	return p, nil
}

// UserAgent returns a random user agent string.
func (r *IdentityRotator) UserAgent() string {
	return r.userAgents[rand.IntN(len(r.userAgents))]
}
