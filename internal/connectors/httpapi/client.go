package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// Client issues provider requests through a Fetcher.
type Client struct {
	// Provider names the connector for errors and rate limiting.
	Provider string
	// BaseURL is prefixed to every request path.
	BaseURL string
	// Fetcher performs the network call.
	Fetcher driven.Fetcher
}

// Options holds settings common to every connector constructor.
type Options struct {
	BaseURL string
	Now     func() time.Time
}

// Option customises a connector.
type Option func(*Options)

// WithBaseURL points a connector at a different API root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(o *Options) { o.BaseURL = strings.TrimRight(u, "/") }
}

// WithClock overrides the clock data connectors use for watermarks.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Now = now }
}

// Apply resolves options over a default base URL.
func Apply(defaultBase string, opts []Option) Options {
	o := Options{BaseURL: defaultBase, Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Do issues req, filling in the provider and resolving a relative URL.
// The response is returned for any status; only transport failures are errors.
func (c Client) Do(ctx context.Context, req driven.Request) (*driven.Response, error) {
	if c.Fetcher == nil {
		return nil, domain.NewPermanent(c.Provider, 0, "", fmt.Errorf("%w: no fetcher configured", domain.ErrInvalidInput))
	}
	req.Provider = c.Provider
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		req.URL = c.BaseURL + req.URL
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	return c.Fetcher.Fetch(ctx, req)
}

// Get issues a GET for path with the given headers.
func (c Client) Get(ctx context.Context, path string, header http.Header) (*driven.Response, error) {
	return c.Do(ctx, driven.Request{Method: http.MethodGet, URL: path, Header: header})
}

// PostForm issues a urlencoded form POST. Values are encoded with
// EscapeComponent so the body matches what browsers send.
func (c Client) PostForm(ctx context.Context, path string, form Form, header http.Header) (*driven.Response, error) {
	h := cloneHeader(header)
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.Do(ctx, driven.Request{
		Method: http.MethodPost,
		URL:    path,
		Header: h,
		Body:   []byte(form.Encode()),
	})
}

// PostJSON issues a POST with body marshalled as JSON.
func (c Client) PostJSON(ctx context.Context, path string, body any, header http.Header) (*driven.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, domain.NewPermanent(c.Provider, 0, "", fmt.Errorf("encode request: %w", err))
	}
	h := cloneHeader(header)
	h.Set("Content-Type", "application/json")
	return c.Do(ctx, driven.Request{
		Method: http.MethodPost,
		URL:    path,
		Header: h,
		Body:   payload,
	})
}

// Check returns the classified failure for a non-2xx response.
func (c Client) Check(resp *driven.Response) error {
	if resp.OK() {
		return nil
	}
	return domain.StatusError(c.Provider, resp.StatusCode, resp.Body)
}

// Decode unmarshals a JSON response body into T. A body that does not
// match T is a permanent failure carrying a snippet of the raw response.
func Decode[T any](provider string, resp *driven.Response) (T, error) {
	var v T
	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return v, &domain.IntegrationError{
			Provider:   provider,
			Class:      domain.ClassPermanent,
			StatusCode: resp.StatusCode,
			Snippet:    domain.Snippet(resp.Body),
			Err:        fmt.Errorf("%w: %w", domain.ErrUnexpectedResponse, err),
		}
	}
	return v, nil
}

// Header builds an http.Header from alternating name/value pairs.
// Pairs with an empty value are skipped.
func Header(pairs ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		h.Set(pairs[i], pairs[i+1])
	}
	return h
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}

// Form is an ordered urlencoded form body.
type Form [][2]string

// Encode renders the form as name=value pairs joined by '&'.
func (f Form) Encode() string {
	parts := make([]string, 0, len(f))
	for _, kv := range f {
		parts = append(parts, EscapeComponent(kv[0])+"="+EscapeComponent(kv[1]))
	}
	return strings.Join(parts, "&")
}

// EscapeComponent percent-encodes s for use as a single URL path segment or
// query value. Only A-Z a-z 0-9 and - _ . ! ~ * ' ( ) are left unescaped,
// so the output is byte-identical to what provider web clients send.
func EscapeComponent(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	r := strings.NewReplacer("%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*")
	return r.Replace(e)
}

// RequireAPIKey returns the API key or a permanent missing-credentials failure.
func RequireAPIKey(provider string, creds domain.Credentials) (string, error) {
	key := creds.APIKey()
	if key == "" {
		return "", domain.NewPermanent(provider, 0, "",
			fmt.Errorf("%w: %s", domain.ErrMissingCredentials, domain.CredentialAPIKey))
	}
	return key, nil
}
