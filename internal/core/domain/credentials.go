package domain

import (
	"sort"
	"strings"
)

// CredentialAPIKey is the conventional credential name for provider API keys.
//
//nolint:gosec // G101: credential name, not a credential.
const CredentialAPIKey = "API_KEY"

// Credentials maps credential names to secrets for one provider invocation.
// Connectors treat it as read-only and must never log or persist it.
type Credentials map[string]string

// Get returns the named secret or the empty string.
func (c Credentials) Get(name string) string {
	if c == nil {
		return ""
	}
	return c[name]
}

// APIKey returns the API_KEY secret.
func (c Credentials) APIKey() string {
	return c.Get(CredentialAPIKey)
}

// Has reports whether a non-empty secret is present under name.
func (c Credentials) Has(name string) bool {
	return c.Get(name) != ""
}

// Names returns the credential names in sorted order.
func (c Credentials) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String redacts every secret so credentials are safe to format.
func (c Credentials) String() string {
	names := c.Names()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+":<redacted>")
	}
	return "Credentials{" + strings.Join(parts, ", ") + "}"
}

// GoString redacts secrets under %#v as well.
func (c Credentials) GoString() string {
	return c.String()
}
