package auth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// DefaultEnvPrefix prefixes every credential variable.
const DefaultEnvPrefix = "SERCHA_INTEL"

// Ensure EnvCredentialStore implements the interface.
var _ driven.CredentialStore = (*EnvCredentialStore)(nil)

// EnvCredentialStore reads credentials from environment variables.
// The environment is scanned on every call so rotated keys apply immediately.
type EnvCredentialStore struct {
	prefix  string
	environ func() []string
}

// NewEnvCredentialStore creates a store using the process environment.
// An empty prefix uses DefaultEnvPrefix.
func NewEnvCredentialStore(prefix string) *EnvCredentialStore {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return &EnvCredentialStore{prefix: prefix, environ: os.Environ}
}

// Credentials returns every SERCHA_INTEL_<PROVIDER>_<NAME> variable as NAME.
// Empty values are skipped.
func (s *EnvCredentialStore) Credentials(ctx context.Context, provider string) (domain.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if provider == "" {
		return nil, fmt.Errorf("%w: empty provider", domain.ErrInvalidInput)
	}

	prefix := s.VarPrefix(provider)
	creds := domain.Credentials{}
	for _, kv := range s.environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || !strings.HasPrefix(key, prefix) {
			continue
		}
		name := strings.TrimPrefix(key, prefix)
		if name == "" {
			continue
		}
		creds[name] = value
	}
	return creds, nil
}

// Configured reports whether an API key is present for provider.
func (s *EnvCredentialStore) Configured(ctx context.Context, provider string) bool {
	creds, err := s.Credentials(ctx, provider)
	return err == nil && creds.Has(domain.CredentialAPIKey)
}

// APIKeyVar returns the variable name holding provider's API key.
func (s *EnvCredentialStore) APIKeyVar(provider string) string {
	return s.VarPrefix(provider) + domain.CredentialAPIKey
}

// VarPrefix returns "<PREFIX>_<PROVIDER>_" with the provider upper-cased and
// anything outside [A-Z0-9] replaced by an underscore.
func (s *EnvCredentialStore) VarPrefix(provider string) string {
	var b strings.Builder
	b.WriteString(s.prefix)
	b.WriteByte('_')
	for _, r := range strings.ToUpper(provider) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	b.WriteByte('_')
	return b.String()
}
