// Package httpfetch retrieves source pages over plain HTTP and composes
// fetchers with caching and browser fallback.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/scoring"
	"github.com/user/recipe-service/pkg/metrics"
)

const (
	DefaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20
	maxRedirects   = 10
)

// Fetcher implements repository.PageFetcher with net/http.
type Fetcher struct {
	client   *http.Client
	identity *IdentityRotator
	timeout  time.Duration
	logger   *zap.Logger
}

// NewFetcher creates a fetcher. Each fetch is bounded by timeout
// (DefaultTimeout when zero).
func NewFetcher(identity *IdentityRotator, timeout time.Duration, logger *zap.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if identity == nil {
		identity = NewIdentityRotator(nil, nil)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = identity.Proxy
	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		identity: identity,
		timeout:  timeout,
		logger:   logger.Named("fetcher"),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*entity.FetchedPage, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, entity.NewStructuralError("the URL is not valid", err)
	}
	req.Header.Set("User-Agent", f.identity.UserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		classified := scoring.ClassifyTransportError(url, err)
		metrics.FetchesTotal.WithLabelValues("http", outcome(classified)).Inc()
		f.logger.Warn("Fetch failed", zap.String("url", url), zap.Error(err))
		return nil, classified
	}
	defer resp.Body.Close()

	if err := scoring.ClassifyStatus(url, resp.StatusCode); err != nil {
		metrics.FetchesTotal.WithLabelValues("http", outcome(err)).Inc()
		f.logger.Info("Fetch returned error status", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return nil, err
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !isHTML(ct) {
		metrics.FetchesTotal.WithLabelValues("http", "unsupported").Inc()
		return nil, entity.NewStructuralError(fmt.Sprintf("the URL points to %s content, not a web page", ct), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		classified := scoring.ClassifyTransportError(url, err)
		metrics.FetchesTotal.WithLabelValues("http", outcome(classified)).Inc()
		return nil, classified
	}
	metrics.FetchesTotal.WithLabelValues("http", "ok").Inc()

	return &entity.FetchedPage{
		URL:            url,
		FinalURL:       resp.Request.URL.String(),
		HTML:           string(body),
		HTTPStatusCode: resp.StatusCode,
		ResponseTimeMS: int(time.Since(start).Milliseconds()),
		FetchedAt:      time.Now().UTC(),
		Renderer:       "http",
	}, nil
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "html") || strings.Contains(ct, "xml") || strings.HasPrefix(ct, "text/plain")
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr, ok := entity.AsAppError(err); ok {
		return string(appErr.Kind)
	}
	return "canceled"
}
