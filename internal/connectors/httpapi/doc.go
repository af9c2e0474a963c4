// Package httpapi provides the request-shape and response-decoding helpers
// shared by the provider connectors.
//
// A connector describes how each artifact type maps to an HTTP request
// as a Routes table, then uses Client to issue it through the injected
// Fetcher. Decoding failures and unexpected statuses come back as
// classified *domain.IntegrationError values.
package httpapi
