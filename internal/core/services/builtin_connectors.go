package services

import (
	"fmt"

	"github.com/custodia-labs/sercha-intel/internal/connectors/abuseipdb"
	"github.com/custodia-labs/sercha-intel/internal/connectors/greynoise"
	"github.com/custodia-labs/sercha-intel/internal/connectors/otx"
	"github.com/custodia-labs/sercha-intel/internal/connectors/shodan"
	"github.com/custodia-labs/sercha-intel/internal/connectors/threatfox"
	"github.com/custodia-labs/sercha-intel/internal/connectors/torexit"
	"github.com/custodia-labs/sercha-intel/internal/connectors/urlhaus"
	"github.com/custodia-labs/sercha-intel/internal/connectors/virustotal"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driving"
)

// BuiltinAgents returns every bundled agent connector bound to f.
func BuiltinAgents(f driven.Fetcher) []driven.AgentConnector {
	return []driven.AgentConnector{
		abuseipdb.New(f),
		greynoise.New(f),
		otx.New(f),
		shodan.New(f),
		urlhaus.New(f),
		virustotal.New(f),
	}
}

// BuiltinFeeds returns every bundled data connector bound to f.
func BuiltinFeeds(f driven.Fetcher) []driven.DataConnector {
	return []driven.DataConnector{
		threatfox.New(f),
		torexit.New(f),
	}
}

// RegisterBuiltinConnectors registers the bundled connectors. When enabled
// is non-empty only the named providers are registered, and naming an
// unknown provider is an error.
func RegisterBuiltinConnectors(reg driving.ConnectorRegistry, f driven.Fetcher, enabled []string) error {
	filter := len(enabled) > 0
	want := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		want[name] = true
	}
	include := func(name string) bool {
		if !filter {
			return true
		}
		ok := want[name]
		delete(want, name)
		return ok
	}

	for _, c := range BuiltinAgents(f) {
		if !include(c.Descriptor().Name) {
			continue
		}
		if err := reg.RegisterAgent(c); err != nil {
			return fmt.Errorf("register %s: %w", c.Descriptor().Name, err)
		}
	}
	for _, c := range BuiltinFeeds(f) {
		if !include(c.Descriptor().Name) {
			continue
		}
		if err := reg.RegisterData(c); err != nil {
			return fmt.Errorf("register %s: %w", c.Descriptor().Name, err)
		}
	}

	for name := range want {
		return fmt.Errorf("%w: %s", domain.ErrUnknownProvider, name)
	}
	return nil
}
