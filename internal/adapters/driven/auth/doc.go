// Package auth supplies provider credentials to connectors.
//
// Secrets are read from the environment at call time and never written to
// disk or logged. For a provider named "abuseipdb":
//
//	SERCHA_INTEL_ABUSEIPDB_API_KEY=...   -> Credentials{"API_KEY": ...}
//	SERCHA_INTEL_ABUSEIPDB_<NAME>=...    -> Credentials{"<NAME>": ...}
package auth
