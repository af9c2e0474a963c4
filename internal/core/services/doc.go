// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - ConnectorRegistry: connector lookup by name, kind and artifact type
//   - EnrichmentService: concurrent agent lookups with retry and timeouts
//   - FeedSyncOrchestrator: the watermark protocol for data connectors
//   - Deduplicator: bounded downstream record dedup
//   - Scheduler: periodic feed pulls with recorded results
//   - SettingsService, RecordService: configuration and record queries
package services
