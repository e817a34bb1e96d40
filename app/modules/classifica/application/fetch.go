package classificaservice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Black-And-White-Club/pinfall-import/config"
	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// Fetcher downloads a results page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*FetchedPage, error)
}

// FetchedPage is a downloaded body with the metadata the tokenizer needs.
type FetchedPage struct {
	Body        []byte
	ContentType string
	FinalURL    string
}

// HTTPFetcher downloads pages with a bounded body size and an outbound
// rate limit. When a proxy is configured, a failed direct attempt is
// retried once through it.
type HTTPFetcher struct {
	direct    *http.Client
	proxied   *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
	metrics   observability.ImportMetrics
}

// NewHTTPFetcher builds a fetcher from cfg.
func NewHTTPFetcher(cfg config.FetchConfig, logger *slog.Logger, metrics observability.ImportMetrics) (*HTTPFetcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewNoop()
	}

	f := &HTTPFetcher{
		direct:    newHTTPClient(cfg, nil),
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), max(cfg.RateBurst, 1)),
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
		logger:    logger,
		metrics:   metrics,
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid fetch proxy url: %w", err)
		}
		f.proxied = newHTTPClient(cfg, http.ProxyURL(proxyURL))
	}
	return f, nil
}

func newHTTPClient(cfg config.FetchConfig, proxy func(*http.Request) (*url.URL, error)) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxy
	maxRedirects := cfg.MaxRedirects
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// Fetch downloads rawURL. Every failure is an *ImportError with code
// ErrFetchFailed.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*FetchedPage, error) {
	start := time.Now()

	if err := f.limiter.Wait(ctx); err != nil {
		f.metrics.RecordFetch(ctx, "rate_limited", time.Since(start))
		return nil, &ImportError{Code: ErrFetchFailed, Source: rawURL, Err: err}
	}

	page, err := f.fetchWith(ctx, f.direct, rawURL)
	if err != nil && f.proxied != nil && ctx.Err() == nil {
		f.logger.WarnContext(ctx, "Direct fetch failed, retrying through proxy",
			observability.CorrelationAttr(ctx),
			slog.String("url", rawURL),
			observability.ErrorAttr(err),
		)
		page, err = f.fetchWith(ctx, f.proxied, rawURL)
	}
	if err != nil {
		f.metrics.RecordFetch(ctx, "error", time.Since(start))
		return nil, &ImportError{Code: ErrFetchFailed, Source: rawURL, Err: err}
	}

	f.metrics.RecordFetch(ctx, "ok", time.Since(start))
	return page, nil
}

func (f *HTTPFetcher) fetchWith(ctx context.Context, client *http.Client, rawURL string) (*FetchedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", f.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	body, contentType, err = decodeText(body, contentType)
	if err != nil {
		return nil, err
	}

	return &FetchedPage{
		Body:        body,
		ContentType: contentType,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// decodeText converts non-markup text bodies to UTF-8 using the declared
// charset. Markup is left alone because the tokenizer also honours
// <meta charset> declarations.
func decodeText(body []byte, contentType string) ([]byte, string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "text/") || mediaType == "text/html" {
		return body, contentType, nil
	}
	cs := strings.ToLower(params["charset"])
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return body, contentType, nil
	}

	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s body: %w", cs, err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s body: %w", cs, err)
	}
	return decoded, mediaType + "; charset=utf-8", nil
}
