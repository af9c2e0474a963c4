package driving

import (
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// ConnectorRegistry holds the active connectors keyed by provider name.
type ConnectorRegistry interface {
	// RegisterAgent adds an agent connector.
	// Returns domain.ErrAlreadyExists if the name is taken.
	RegisterAgent(c driven.AgentConnector) error

	// RegisterData adds a data connector.
	RegisterData(c driven.DataConnector) error

	// Lookup returns the descriptor registered under name.
	Lookup(name string) (domain.ProviderDescriptor, error)

	// Agent returns the agent connector registered under name.
	Agent(name string) (driven.AgentConnector, error)

	// Data returns the data connector registered under name.
	Data(name string) (driven.DataConnector, error)

	// AgentsFor returns agent connectors supporting t, ordered by name.
	AgentsFor(t domain.ArtifactType) []driven.AgentConnector

	// DataConnectors returns all data connectors, ordered by name.
	DataConnectors() []driven.DataConnector

	// Descriptors returns every registered descriptor, ordered by name.
	Descriptors() []domain.ProviderDescriptor
}
