package domain

import (
	"fmt"
	"strings"
)

// ConnectorKind distinguishes on-demand lookups from bulk feed pulls.
type ConnectorKind string

const (
	// KindAgent connectors enrich one artifact per call.
	KindAgent ConnectorKind = "agent"
	// KindData connectors pull a batch of IOCs per call.
	KindData ConnectorKind = "data"
)

// IsValid returns true if the kind is recognised.
func (k ConnectorKind) IsValid() bool {
	return k == KindAgent || k == KindData
}

// ProviderDescriptor describes a registered connector.
type ProviderDescriptor struct {
	// Name is the unique provider identifier (e.g., "abuseipdb", "threatfox").
	Name string
	// DisplayName is the human-readable provider name.
	DisplayName string
	// Description provides a brief explanation of the connector.
	Description string
	// Kind is agent or data.
	Kind ConnectorKind
	// ArtifactTypes lists the artifact types an agent connector accepts.
	// Data connectors list the key types their records may carry.
	ArtifactTypes []ArtifactType
	// CredentialKeys lists credential names the connector reads.
	CredentialKeys []string
	// RequiresAuth indicates the provider rejects anonymous calls.
	RequiresAuth bool
	// DocsURL points at the provider's API reference.
	DocsURL string
}

// Supports reports whether the connector declares support for t.
func (d ProviderDescriptor) Supports(t ArtifactType) bool {
	for _, at := range d.ArtifactTypes {
		if at == t {
			return true
		}
	}
	return false
}

// Validate checks the descriptor is usable for registration.
func (d ProviderDescriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: provider name is required", ErrInvalidInput)
	}
	if d.Name != strings.ToLower(d.Name) {
		return fmt.Errorf("%w: provider name %q must be lowercase", ErrInvalidInput, d.Name)
	}
	if !d.Kind.IsValid() {
		return fmt.Errorf("%w: provider %s has kind %q", ErrInvalidInput, d.Name, d.Kind)
	}
	if d.Kind == KindAgent && len(d.ArtifactTypes) == 0 {
		return fmt.Errorf("%w: agent provider %s declares no artifact types", ErrInvalidInput, d.Name)
	}
	for _, t := range d.ArtifactTypes {
		if !t.IsValid() {
			return fmt.Errorf("%w: provider %s declares artifact type %q", ErrUnsupportedType, d.Name, t)
		}
	}
	return nil
}
