package domain

import (
	"fmt"
	"strings"
)

// ArtifactType identifies the shape of an artifact value.
type ArtifactType string

// Supported artifact types.
const (
	ArtifactIP     ArtifactType = "ip"
	ArtifactDomain ArtifactType = "domain"
	ArtifactHash   ArtifactType = "hash"
	ArtifactURL    ArtifactType = "url"
)

// AllArtifactTypes returns every supported artifact type.
func AllArtifactTypes() []ArtifactType {
	return []ArtifactType{ArtifactIP, ArtifactDomain, ArtifactHash, ArtifactURL}
}

// IsValid returns true if the artifact type is recognised.
func (t ArtifactType) IsValid() bool {
	switch t {
	case ArtifactIP, ArtifactDomain, ArtifactHash, ArtifactURL:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t ArtifactType) String() string {
	return string(t)
}

// ParseArtifactType parses a case-insensitive artifact type name.
func ParseArtifactType(s string) (ArtifactType, error) {
	t := ArtifactType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: artifact type %q", ErrUnsupportedType, s)
	}
	return t, nil
}

// Artifact is the subject of an enrichment lookup.
// Values are provider-opaque and are never rewritten by the framework.
type Artifact struct {
	// Value is the artifact exactly as supplied by the caller.
	Value string

	// Type is the declared shape of Value.
	Type ArtifactType
}

// NewArtifact validates and returns an artifact.
func NewArtifact(value string, t ArtifactType) (Artifact, error) {
	if strings.TrimSpace(value) == "" {
		return Artifact{}, fmt.Errorf("%w: empty artifact value", ErrInvalidInput)
	}
	if !t.IsValid() {
		return Artifact{}, fmt.Errorf("%w: artifact type %q", ErrUnsupportedType, t)
	}
	return Artifact{Value: value, Type: t}, nil
}

// String returns "type:value".
func (a Artifact) String() string {
	return string(a.Type) + ":" + a.Value
}
