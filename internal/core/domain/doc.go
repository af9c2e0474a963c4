// Package domain defines the core entities of the enrichment framework.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Artifact: A network-observable value under investigation
//   - Record: The normalised output every connector produces
//   - Watermark: Opaque progress token for bulk feed pulls
//   - IntegrationError: A classified provider failure
//   - ProviderDescriptor: Registry metadata for a connector
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
