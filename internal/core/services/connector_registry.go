package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driving"
)

// Ensure ConnectorRegistry implements the interface.
var _ driving.ConnectorRegistry = (*ConnectorRegistry)(nil)

// ConnectorRegistry holds the active agent and data connectors by name.
// Connector instances are stateless, so one instance serves every call.
type ConnectorRegistry struct {
	mu     sync.RWMutex
	agents map[string]driven.AgentConnector
	feeds  map[string]driven.DataConnector
}

// NewConnectorRegistry creates an empty connector registry.
func NewConnectorRegistry() *ConnectorRegistry {
	return &ConnectorRegistry{
		agents: make(map[string]driven.AgentConnector),
		feeds:  make(map[string]driven.DataConnector),
	}
}

// RegisterAgent adds an agent connector.
func (r *ConnectorRegistry) RegisterAgent(c driven.AgentConnector) error {
	d, err := r.checkDescriptor(c, domain.KindAgent)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken(d.Name) {
		return fmt.Errorf("%w: provider %s", domain.ErrAlreadyExists, d.Name)
	}
	r.agents[d.Name] = c
	return nil
}

// RegisterData adds a data connector.
func (r *ConnectorRegistry) RegisterData(c driven.DataConnector) error {
	d, err := r.checkDescriptor(c, domain.KindData)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken(d.Name) {
		return fmt.Errorf("%w: provider %s", domain.ErrAlreadyExists, d.Name)
	}
	r.feeds[d.Name] = c
	return nil
}

func (r *ConnectorRegistry) checkDescriptor(c driven.Connector, kind domain.ConnectorKind) (domain.ProviderDescriptor, error) {
	if c == nil {
		return domain.ProviderDescriptor{}, fmt.Errorf("%w: nil connector", domain.ErrInvalidInput)
	}
	d := c.Descriptor()
	if err := d.Validate(); err != nil {
		return d, err
	}
	if d.Kind != kind {
		return d, fmt.Errorf("%w: provider %s is %s, registered as %s", domain.ErrKindMismatch, d.Name, d.Kind, kind)
	}
	return d, nil
}

// taken must be called with r.mu held.
func (r *ConnectorRegistry) taken(name string) bool {
	_, agent := r.agents[name]
	_, feed := r.feeds[name]
	return agent || feed
}

// Lookup returns the descriptor registered under name.
func (r *ConnectorRegistry) Lookup(name string) (domain.ProviderDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.agents[name]; ok {
		return c.Descriptor(), nil
	}
	if c, ok := r.feeds[name]; ok {
		return c.Descriptor(), nil
	}
	return domain.ProviderDescriptor{}, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, name)
}

// Agent returns the agent connector registered under name.
func (r *ConnectorRegistry) Agent(name string) (driven.AgentConnector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.agents[name]; ok {
		return c, nil
	}
	if _, ok := r.feeds[name]; ok {
		return nil, fmt.Errorf("%w: %s is a data connector", domain.ErrKindMismatch, name)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, name)
}

// Data returns the data connector registered under name.
func (r *ConnectorRegistry) Data(name string) (driven.DataConnector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.feeds[name]; ok {
		return c, nil
	}
	if _, ok := r.agents[name]; ok {
		return nil, fmt.Errorf("%w: %s is an agent connector", domain.ErrKindMismatch, name)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, name)
}

// AgentsFor returns agent connectors supporting t, ordered by name.
func (r *ConnectorRegistry) AgentsFor(t domain.ArtifactType) []driven.AgentConnector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []driven.AgentConnector
	for _, name := range sortedKeys(r.agents) {
		c := r.agents[name]
		if c.Descriptor().Supports(t) {
			out = append(out, c)
		}
	}
	return out
}

// DataConnectors returns all data connectors, ordered by name.
func (r *ConnectorRegistry) DataConnectors() []driven.DataConnector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]driven.DataConnector, 0, len(r.feeds))
	for _, name := range sortedKeys(r.feeds) {
		out = append(out, r.feeds[name])
	}
	return out
}

// Descriptors returns every registered descriptor, ordered by name.
func (r *ConnectorRegistry) Descriptors() []domain.ProviderDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ProviderDescriptor, 0, len(r.agents)+len(r.feeds))
	for _, c := range r.agents {
		out = append(out, c.Descriptor())
	}
	for _, c := range r.feeds {
		out = append(out, c.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
