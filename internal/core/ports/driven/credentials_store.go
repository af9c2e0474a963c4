package driven

import (
	"context"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
)

// CredentialStore supplies provider credentials fresh for each call.
// The core never decides where secrets come from and never caches them.
type CredentialStore interface {
	// Credentials returns the secrets for a provider.
	// Returns empty Credentials, not an error, when none are configured.
	Credentials(ctx context.Context, provider string) (domain.Credentials, error)
}
