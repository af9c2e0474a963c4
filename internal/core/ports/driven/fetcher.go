package driven

import (
	"context"
	"net/http"
)

// Request is one outbound provider call.
type Request struct {
	// Provider labels the call for rate limiting and error classification.
	Provider string
	// Method is the HTTP method; empty means GET.
	Method string
	// URL is the fully-encoded request URL.
	URL string
	// Header holds request headers.
	Header http.Header
	// Body is the request payload, if any.
	Body []byte
}

// Response is a fully-read provider response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher performs network calls on behalf of connectors.
// It is the single network capability connectors receive, so tests can
// substitute a scripted fake. Transport failures, including context
// deadlines, are returned as transient *domain.IntegrationError values.
// Non-2xx statuses are NOT errors at this layer.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}
