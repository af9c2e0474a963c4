// Package httpfetch implements the driven.Fetcher port over net/http.
//
// Every call is throttled by a per-provider token bucket. A 429 answer
// carrying Retry-After pauses that provider's bucket until the given
// time, so retries issued by the core back off to the provider's pace.
package httpfetch
