package httpfetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

func TestFetch_GetReturnsBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "secret", r.Header.Get("Key"))
		assert.Equal(t, "sercha-intel-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	f := New(srv.Client(), Config{UserAgent: "sercha-intel-test"})
	resp, err := f.Fetch(context.Background(), driven.Request{
		Provider: "abuseipdb",
		URL:      srv.URL + "/api",
		Header:   http.Header{"Key": []string{"secret"}},
	})

	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestFetch_PostBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "host=example.com", string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(srv.Client(), Config{})
	resp, err := f.Fetch(context.Background(), driven.Request{
		Provider: "urlhaus",
		Method:   http.MethodPost,
		URL:      srv.URL,
		Body:     []byte("host=example.com"),
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFetch_ErrorStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "nope")
	}))
	defer srv.Close()

	resp, err := New(srv.Client(), Config{}).Fetch(context.Background(), driven.Request{Provider: "p", URL: srv.URL})

	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, "nope", string(resp.Body))
}

func TestFetch_TransportErrorIsTransientAndRedacted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := New(nil, Config{}).Fetch(context.Background(), driven.Request{
		Provider: "shodan",
		URL:      addr + "/shodan/host/1.2.3.4?key=supersecret",
	})

	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.NotContains(t, err.Error(), "supersecret")
}

func TestFetch_TimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := New(srv.Client(), Config{}).Fetch(ctx, driven.Request{Provider: "p", URL: srv.URL})

	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFetch_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 64))
	}))
	defer srv.Close()

	_, err := New(srv.Client(), Config{MaxBodyBytes: 16}).Fetch(context.Background(),
		driven.Request{Provider: "p", URL: srv.URL})

	assert.True(t, domain.IsPermanent(err))
	assert.ErrorIs(t, err, domain.ErrUnexpectedResponse)
}

func TestFetch_BadURLIsPermanent(t *testing.T) {
	_, err := New(nil, Config{}).Fetch(context.Background(), driven.Request{
		Provider: "shodan",
		URL:      "http://[::1/%zz?key=supersecret",
	})

	require.Error(t, err)
	assert.True(t, domain.IsPermanent(err))
	assert.NotContains(t, err.Error(), "supersecret")
}

func TestFetch_RetryAfterPausesProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(HeaderRetryAfter, "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := New(srv.Client(), Config{})
	resp, err := f.Fetch(context.Background(), driven.Request{Provider: "greynoise", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	assert.True(t, f.Limiter("greynoise").ResetAt().After(time.Now().Add(20*time.Second)))
	assert.True(t, f.Limiter("otx").ResetAt().IsZero())

	// A paused provider fails fast once the caller's deadline passes.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, driven.Request{Provider: "greynoise", URL: srv.URL})
	assert.True(t, domain.IsTransient(err))
}

func TestFetcher_LimiterPerProvider(t *testing.T) {
	f := New(nil, Config{RatePerSecond: 2, Burst: 1, ProviderRates: map[string]float64{"virustotal": 0.5}})

	assert.Same(t, f.Limiter("otx"), f.Limiter("otx"))
	assert.NotSame(t, f.Limiter("otx"), f.Limiter("shodan"))
	assert.InDelta(t, 0.5, float64(f.Limiter("virustotal").bucket.Limit()), 0.001)
	assert.InDelta(t, 2, float64(f.Limiter("otx").bucket.Limit()), 0.001)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Duration
		ok    bool
	}{
		{"seconds", "12", 12 * time.Second, true},
		{"empty", "", 0, false},
		{"negative", "-1", 0, false},
		{"garbage", "soon", 0, false},
		{"http date", now.Add(time.Minute).Format(http.TimeFormat), time.Minute, true},
		{"past date", now.Add(-time.Minute).Format(http.TimeFormat), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRetryAfter(tt.value, now)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRateLimiter_ObserveCapsPause(t *testing.T) {
	l := NewRateLimiter(0, 0)
	now := time.Now()

	l.Observe(&http.Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{HeaderRetryAfter: []string{"86400"}},
	}, now)
	assert.Equal(t, now.Add(maxPause), l.ResetAt())

	// Other statuses leave the limiter alone.
	other := NewRateLimiter(0, 0)
	other.Observe(&http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{HeaderRetryAfter: []string{"10"}},
	}, now)
	assert.True(t, other.ResetAt().IsZero())
}
