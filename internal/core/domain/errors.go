package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// Providers reporting an unknown artifact do NOT produce this error;
	// they produce a Record with data.found = false.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown artifact type, or one a
	// provider does not support.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUnknownProvider indicates no connector is registered under a name.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrKindMismatch indicates a connector was used as the wrong kind.
	ErrKindMismatch = errors.New("connector kind mismatch")

	// ErrSyncInProgress indicates a feed pull is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrInvalidWatermark indicates a watermark could not be decoded.
	ErrInvalidWatermark = errors.New("invalid watermark")

	// Integration failure classes. Every *IntegrationError matches
	// exactly one of these with errors.Is.

	// ErrTransient marks a retryable provider-side failure.
	ErrTransient = errors.New("transient integration failure")

	// ErrPermanent marks a non-retryable configuration or contract failure.
	ErrPermanent = errors.New("permanent integration failure")

	// ErrMissingCredentials indicates a required credential was not supplied.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrUnexpectedResponse indicates a response the normaliser cannot parse.
	ErrUnexpectedResponse = errors.New("unexpected response shape")
)

// maxSnippet bounds the raw response excerpt attached to errors.
const maxSnippet = 256

// ErrorClass distinguishes retryable from non-retryable integration failures.
type ErrorClass int

const (
	// ClassTransient failures may be retried with backoff.
	ClassTransient ErrorClass = iota
	// ClassPermanent failures should not be blindly retried.
	ClassPermanent
)

// String returns the class name.
func (c ErrorClass) String() string {
	if c == ClassPermanent {
		return "permanent"
	}
	return "transient"
}

func (c ErrorClass) sentinel() error {
	if c == ClassPermanent {
		return ErrPermanent
	}
	return ErrTransient
}

// IntegrationError is a classified provider failure.
type IntegrationError struct {
	// Provider is the connector that failed.
	Provider string
	// Class is transient or permanent.
	Class ErrorClass
	// StatusCode is the HTTP-equivalent status, or 0 for transport failures.
	StatusCode int
	// Snippet is a bounded excerpt of the raw response for diagnosis.
	Snippet string
	// Err is the underlying cause, if any.
	Err error
}

func (e *IntegrationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(": ")
	b.WriteString(e.Class.sentinel().Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Snippet != "" {
		fmt.Fprintf(&b, ": %q", e.Snippet)
	}
	return b.String()
}

// Unwrap exposes both the class sentinel and the cause.
func (e *IntegrationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Class.sentinel()}
	}
	return []error{e.Class.sentinel(), e.Err}
}

// NewTransient builds a transient integration failure.
func NewTransient(provider string, status int, snippet string, err error) *IntegrationError {
	return &IntegrationError{
		Provider:   provider,
		Class:      ClassTransient,
		StatusCode: status,
		Snippet:    Snippet([]byte(snippet)),
		Err:        err,
	}
}

// NewPermanent builds a permanent integration failure.
func NewPermanent(provider string, status int, snippet string, err error) *IntegrationError {
	return &IntegrationError{
		Provider:   provider,
		Class:      ClassPermanent,
		StatusCode: status,
		Snippet:    Snippet([]byte(snippet)),
		Err:        err,
	}
}

// ClassifyStatus maps a non-success HTTP status to an error class.
// Timeouts, throttling and server errors are transient; everything
// else signals a request the provider will keep rejecting.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooEarly,
		status == http.StatusTooManyRequests,
		status >= 500:
		return ClassTransient
	default:
		return ClassPermanent
	}
}

// StatusError builds the classified failure for a non-success response.
func StatusError(provider string, status int, body []byte) *IntegrationError {
	return &IntegrationError{
		Provider:   provider,
		Class:      ClassifyStatus(status),
		StatusCode: status,
		Snippet:    Snippet(body),
		Err:        fmt.Errorf("%s API error: %d", provider, status),
	}
}

// Snippet truncates a raw response body for attaching to an error.
func Snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxSnippet {
		return s
	}
	cut := maxSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// AsIntegrationError extracts an *IntegrationError from err.
func AsIntegrationError(err error) (*IntegrationError, bool) {
	var ie *IntegrationError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// IsTransient reports whether err is a retryable integration failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsPermanent reports whether err is a non-retryable integration failure.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
