package chromedp_renderer

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/repository"
	"go.uber.org/zap"
)

// RenderingTransport fetches through an inner transport and, for HTML
// responses, replaces the body with the DOM rendered by headless Chrome.
// Media and error responses pass through unchanged.
type RenderingTransport struct {
	inner         repository.Transport
	allocatorPool *sync.Pool
	cancels       []context.CancelFunc
	mu            sync.Mutex
	timeout       time.Duration
	logger        *zap.Logger
}

// NewRenderingTransport creates a transport that renders HTML pages with chromedp.
func NewRenderingTransport(inner repository.Transport, renderTimeout time.Duration, userAgent string, logger *zap.Logger) *RenderingTransport {
	t := &RenderingTransport{
		inner:   inner,
		timeout: renderTimeout,
		logger:  logger,
	}
	t.allocatorPool = &sync.Pool{
		New: func() interface{} {
			opts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
			)
			if userAgent != "" {
				opts = append(opts, chromedp.UserAgent(userAgent))
			}
			allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
			t.mu.Lock()
			t.cancels = append(t.cancels, cancel)
			t.mu.Unlock()
			return allocCtx
		},
	}
	return t
}

// Get fetches url through the inner transport and renders HTML pages.
// A rendering failure keeps the plain response, since a response was received.
func (t *RenderingTransport) Get(ctx context.Context, url string) (*entity.FetchResponse, error) {
	resp, err := t.inner.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if !entity.IsHTMLContentType(resp.ContentType) || resp.StatusCode >= 400 {
		return resp, nil
	}

	html, err := t.render(ctx, url)
	if err != nil {
		t.logger.Warn("rendering failed, keeping raw response", zap.String("url", url), zap.Error(err))
		return resp, nil
	}
	resp.Body = []byte(html)
	resp.ContentType = "text/html; charset=utf-8"
	return resp, nil
}

func (t *RenderingTransport) render(ctx context.Context, url string) (string, error) {
	allocCtx := t.allocatorPool.Get().(context.Context)
	defer t.allocatorPool.Put(allocCtx)

	taskCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(t.logger.Sugar().Debugf))
	defer cancel()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, t.timeout)
	defer cancelTimeout()

	// Stop rendering when the caller gives up.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	t.logger.Debug("rendered page", zap.String("url", url), zap.Int("bytes", len(html)))
	return html, nil
}

// Close shuts down every browser allocator created by the transport.
func (t *RenderingTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, cancel := range t.cancels {
		cancel()
	}
	t.cancels = nil
}
