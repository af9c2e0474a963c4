// Package memory provides in-process implementations of the driven stores.
// State is lost when the process exits; it backs the "memory" storage
// backend and tests.
package memory
