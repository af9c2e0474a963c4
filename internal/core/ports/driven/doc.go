// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - AgentConnector: On-demand single-artifact enrichment
//   - DataConnector: Periodic bulk feed pull with a watermark
//   - Fetcher: The network capability handed to connectors
//   - WatermarkStore: Feed progress persistence
//   - RecordSink: Downstream consumer of normalised records
//   - CredentialStore: Per-call provider secrets
//
// # Optional Interfaces
//
//   - SchedulerStore: Periodic task state (required only by `serve`)
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
