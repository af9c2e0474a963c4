// Package fetchtest provides a scripted driven.Fetcher for connector tests.
package fetchtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// Step is one scripted response.
type Step struct {
	Status int
	Body   string
	Header http.Header
	// Err, when set, is returned instead of a response.
	Err error
}

// JSON returns a step answering with status and a JSON body.
func JSON(status int, body string) Step {
	return Step{
		Status: status,
		Body:   body,
		Header: http.Header{"Content-Type": []string{"application/json"}},
	}
}

// Text returns a step answering with status and a plain-text body.
func Text(status int, body string) Step {
	return Step{
		Status: status,
		Body:   body,
		Header: http.Header{"Content-Type": []string{"text/plain"}},
	}
}

// TransportError returns a step that fails like a dropped connection.
func TransportError() Step {
	return Step{Err: errors.New("connection reset by peer")}
}

// Fetcher replays Steps in order and records every request it receives.
// Running out of steps is reported as a test-visible error.
type Fetcher struct {
	mu       sync.Mutex
	steps    []Step
	requests []driven.Request
}

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// New creates a fetcher that replays steps.
func New(steps ...Step) *Fetcher {
	return &Fetcher{steps: steps}
}

// Fetch returns the next scripted response.
func (f *Fetcher) Fetch(ctx context.Context, req driven.Request) (*driven.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, domain.NewTransient(req.Provider, 0, "", err)
	}
	if len(f.steps) == 0 {
		return nil, fmt.Errorf("fetchtest: unexpected request %s %s", req.Method, req.URL)
	}
	step := f.steps[0]
	f.steps = f.steps[1:]

	if step.Err != nil {
		return nil, domain.NewTransient(req.Provider, 0, "", step.Err)
	}
	return &driven.Response{
		StatusCode: step.Status,
		Header:     step.Header,
		Body:       []byte(step.Body),
	}, nil
}

// Requests returns a copy of every request received so far.
func (f *Fetcher) Requests() []driven.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]driven.Request(nil), f.requests...)
}

// Last returns the most recent request, or the zero Request.
func (f *Fetcher) Last() driven.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return driven.Request{}
	}
	return f.requests[len(f.requests)-1]
}

// Calls returns how many requests were received.
func (f *Fetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Remaining returns how many scripted steps were not consumed.
func (f *Fetcher) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.steps)
}
