package driving

import "context"

// Scheduler pulls every enabled data connector on its configured interval.
type Scheduler interface {
	// Start runs due feed pulls until ctx is cancelled or Stop is called.
	// A second Start while running returns nil immediately.
	Start(ctx context.Context) error

	// Stop ends the loop and waits for in-flight pulls to finish.
	Stop() error
}
