package domain

import (
	"fmt"
	"time"
)

// Watermark is an opaque token meaning "feed state has been seen up to here".
// It advances monotonically per provider but is not a dedup boundary:
// feeds deliberately re-pull an overlapping window.
type Watermark string

// NewWatermark encodes a fetch time as a watermark.
func NewWatermark(t time.Time) Watermark {
	return Watermark(t.UTC().Format(time.RFC3339Nano))
}

// IsZero reports whether no watermark is present.
func (w Watermark) IsZero() bool {
	return w == ""
}

// String returns the raw token.
func (w Watermark) String() string {
	return string(w)
}

// Time decodes a timestamp watermark.
func (w Watermark) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, string(w))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWatermark, string(w))
	}
	return t, nil
}

// FeedBatch is the result of one data connector pull.
type FeedBatch struct {
	// Records is the finite batch of normalised IOC records, in no order.
	Records []Record

	// Watermark is the fresh token to persist for the next pull.
	Watermark Watermark
}

// SyncState tracks the persisted feed progress for a provider.
type SyncState struct {
	// Provider identifies the data connector.
	Provider string

	// Watermark is the last watermark returned by a successful pull.
	Watermark Watermark

	// LastSync is when the last successful pull completed.
	LastSync time.Time

	// RecordCount is the number of records delivered by that pull.
	RecordCount int
}
