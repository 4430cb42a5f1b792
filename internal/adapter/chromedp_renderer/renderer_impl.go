package chromedp_renderer

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/scoring"
	"github.com/user/recipe-service/pkg/metrics"
)

const userAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36`

// ChromedpRenderer fetches pages through headless Chrome so script-rendered
// recipe cards and simple bot checks are handled. It implements
// repository.PageFetcher.
type ChromedpRenderer struct {
	allocatorPool *sync.Pool
	cancels       []context.CancelFunc
	mu            sync.Mutex
	timeout       time.Duration
	logger        *zap.Logger
}

// NewChromedpRenderer creates a renderer with maxConcurrency pre-warmed
// browser allocators.
func NewChromedpRenderer(maxConcurrency int, pageLoadTimeout time.Duration, logger *zap.Logger) *ChromedpRenderer {
	r := &ChromedpRenderer{
		timeout: pageLoadTimeout,
		logger:  logger.Named("chromedp"),
	}
	r.allocatorPool = &sync.Pool{
		New: func() interface{} {
			opts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
				chromedp.UserAgent(userAgent),
			)
			allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
			r.mu.Lock()
			r.cancels = append(r.cancels, cancel)
			r.mu.Unlock()
			return allocCtx
		},
	}

	// Pre-warm the pool
	for i := 0; i < maxConcurrency; i++ {
		allocCtx := r.allocatorPool.Get().(context.Context)
		r.allocatorPool.Put(allocCtx)
	}
	return r
}

// Fetch navigates to url and returns the rendered document. The HTTP status
// of the main document is captured from network events and classified like
// a plain fetch.
func (r *ChromedpRenderer) Fetch(ctx context.Context, url string) (*entity.FetchedPage, error) {
	allocCtx := r.allocatorPool.Get().(context.Context)
	defer r.allocatorPool.Put(allocCtx)

	taskCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(r.logger.Sugar().Debugf))
	defer cancel()
	taskCtx, cancel = context.WithTimeout(taskCtx, r.timeout)
	defer cancel()
	// Stop the browser task when the caller gives up.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		statusMu   sync.Mutex
		statusCode int
		finalURL   string
	)
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok && resp.Type == network.ResourceTypeDocument {
			statusMu.Lock()
			if statusCode == 0 {
				statusCode = int(resp.Response.Status)
				finalURL = resp.Response.URL
			}
			statusMu.Unlock()
		}
	})

	var html string
	start := time.Now()
	err := chromedp.Run(taskCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	elapsed := time.Since(start)

	statusMu.Lock()
	code, final := statusCode, finalURL
	statusMu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		classified := scoring.ClassifyTransportError(url, err)
		metrics.FetchesTotal.WithLabelValues("browser", kindLabel(classified)).Inc()
		r.logger.Warn("Failed to render URL", zap.String("url", url), zap.Error(err))
		return nil, classified
	}
	if err := scoring.ClassifyStatus(url, code); err != nil {
		metrics.FetchesTotal.WithLabelValues("browser", kindLabel(err)).Inc()
		return nil, err
	}
	metrics.FetchesTotal.WithLabelValues("browser", "ok").Inc()
	r.logger.Info("Rendered URL", zap.String("url", url), zap.Int("status", code), zap.Duration("elapsed", elapsed))

	if code == 0 {
		code = 200
	}
	if final == "" {
		final = url
	}
	return &entity.FetchedPage{
		URL:            url,
		FinalURL:       final,
		HTML:           html,
		HTTPStatusCode: code,
		ResponseTimeMS: int(elapsed.Milliseconds()),
		FetchedAt:      time.Now().UTC(),
		Renderer:       "browser",
	}, nil
}

// Close shuts down every browser started by the pool.
func (r *ChromedpRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
}

func kindLabel(err error) string {
	if appErr, ok := entity.AsAppError(err); ok {
		return string(appErr.Kind)
	}
	return "canceled"
}
