// Package connectors holds the provider integrations.
//
// Each subpackage implements exactly one driven.AgentConnector or
// driven.DataConnector against a single threat-intelligence provider.
// Connectors receive the network as an injected driven.Fetcher, keep no
// state between calls, and never log or retain credentials. Shared
// request-shape and decoding helpers live in httpapi.
//
// Connectors are registered with the ConnectorRegistry at startup.
package connectors
