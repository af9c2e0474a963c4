package httpfetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-intel/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 32 << 20

	// DefaultUserAgent is sent when none is configured.
	DefaultUserAgent = "sercha-intel"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Config configures a Fetcher.
type Config struct {
	// Timeout bounds each request, including reading the body.
	Timeout time.Duration
	// RatePerSecond is the default per-provider request rate. Zero disables throttling.
	RatePerSecond float64
	// Burst is the token bucket size.
	Burst int
	// ProviderRates overrides RatePerSecond for named providers.
	ProviderRates map[string]float64
	// UserAgent is set on requests that carry none.
	UserAgent string
	// MaxBodyBytes caps the response body; larger bodies are an error.
	MaxBodyBytes int64
}

// Fetcher performs provider calls over HTTP.
type Fetcher struct {
	client *http.Client
	cfg    Config
	now    func() time.Time

	mu       sync.Mutex
	limiters map[string]*RateLimiter
}

// New creates a fetcher. A nil client gets a fresh one with cfg.Timeout.
func New(client *http.Client, cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{
		client:   client,
		cfg:      cfg,
		now:      time.Now,
		limiters: make(map[string]*RateLimiter),
	}
}

// Fetch sends req and reads the whole response. Non-2xx statuses are
// returned as responses; transport failures become transient errors.
func (f *Fetcher) Fetch(ctx context.Context, req driven.Request) (*driven.Response, error) {
	limiter := f.limiter(req.Provider)
	if err := limiter.Wait(ctx); err != nil {
		return nil, domain.NewTransient(req.Provider, 0, "", fmt.Errorf("rate limit wait: %w", err))
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		// The URL may carry an API key; report only the parse failure.
		return nil, domain.NewPermanent(req.Provider, 0, "", fmt.Errorf("build request: %w", redact(err)))
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	start := f.now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewTransient(req.Provider, 0, "", redact(err))
	}
	defer resp.Body.Close()

	limiter.Observe(resp, f.now())

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, domain.NewTransient(req.Provider, resp.StatusCode, "", fmt.Errorf("read body: %w", redact(err)))
	}
	if int64(len(data)) > f.cfg.MaxBodyBytes {
		return nil, domain.NewPermanent(req.Provider, resp.StatusCode, "",
			fmt.Errorf("%w: body exceeds %d bytes", domain.ErrUnexpectedResponse, f.cfg.MaxBodyBytes))
	}

	logger.Debug("%s: %s %s -> %d in %s", req.Provider, method, httpReq.URL.Path, resp.StatusCode, f.now().Sub(start))

	return &driven.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// Limiter returns the rate limiter for provider.
func (f *Fetcher) Limiter(provider string) *RateLimiter {
	return f.limiter(provider)
}

func (f *Fetcher) limiter(provider string) *RateLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if l, ok := f.limiters[provider]; ok {
		return l
	}
	perSecond := f.cfg.RatePerSecond
	if r, ok := f.cfg.ProviderRates[provider]; ok {
		perSecond = r
	}
	l := NewRateLimiter(perSecond, f.cfg.Burst)
	f.limiters[provider] = l
	return l
}

// redact strips the request URL from transport errors so query-string
// credentials never reach logs or callers.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
