package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
)

func TestConnectorRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewConnectorRegistry()
	agent := newMockAgent("vt", domain.ArtifactIP, domain.ArtifactHash)
	feed := newMockFeed("tor")

	require.NoError(t, reg.RegisterAgent(agent))
	require.NoError(t, reg.RegisterData(feed))

	desc, err := reg.Lookup("vt")
	require.NoError(t, err)
	assert.Equal(t, domain.KindAgent, desc.Kind)

	desc, err = reg.Lookup("tor")
	require.NoError(t, err)
	assert.Equal(t, domain.KindData, desc.Kind)

	gotAgent, err := reg.Agent("vt")
	require.NoError(t, err)
	assert.Same(t, agent, gotAgent)

	gotFeed, err := reg.Data("tor")
	require.NoError(t, err)
	assert.Same(t, feed, gotFeed)
}

func TestConnectorRegistry_UnknownProvider(t *testing.T) {
	reg := NewConnectorRegistry()

	_, err := reg.Lookup("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
	_, err = reg.Agent("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
	_, err = reg.Data("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestConnectorRegistry_KindMismatch(t *testing.T) {
	reg := NewConnectorRegistry()
	require.NoError(t, reg.RegisterAgent(newMockAgent("vt", domain.ArtifactIP)))
	require.NoError(t, reg.RegisterData(newMockFeed("tor")))

	_, err := reg.Data("vt")
	assert.ErrorIs(t, err, domain.ErrKindMismatch)
	_, err = reg.Agent("tor")
	assert.ErrorIs(t, err, domain.ErrKindMismatch)

	// A descriptor whose kind disagrees with the registration call is rejected.
	wrong := newMockAgent("odd", domain.ArtifactIP)
	wrong.desc.Kind = domain.KindData
	assert.ErrorIs(t, reg.RegisterAgent(wrong), domain.ErrKindMismatch)
}

func TestConnectorRegistry_Duplicate(t *testing.T) {
	reg := NewConnectorRegistry()
	require.NoError(t, reg.RegisterAgent(newMockAgent("vt", domain.ArtifactIP)))

	assert.ErrorIs(t, reg.RegisterAgent(newMockAgent("vt", domain.ArtifactHash)), domain.ErrAlreadyExists)
	assert.ErrorIs(t, reg.RegisterData(newMockFeed("vt")), domain.ErrAlreadyExists)
}

func TestConnectorRegistry_InvalidDescriptor(t *testing.T) {
	reg := NewConnectorRegistry()

	assert.ErrorIs(t, reg.RegisterAgent(nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, reg.RegisterAgent(newMockAgent("")), domain.ErrInvalidInput)
	assert.ErrorIs(t, reg.RegisterAgent(newMockAgent("NoTypes")), domain.ErrInvalidInput)
	assert.ErrorIs(t, reg.RegisterAgent(newMockAgent("notypes")), domain.ErrInvalidInput)
	assert.ErrorIs(t, reg.RegisterAgent(newMockAgent("bad", "email")), domain.ErrUnsupportedType)
	assert.Empty(t, reg.Descriptors())
}

func TestConnectorRegistry_AgentsFor(t *testing.T) {
	reg := NewConnectorRegistry()
	require.NoError(t, reg.RegisterAgent(newMockAgent("zeta", domain.ArtifactIP)))
	require.NoError(t, reg.RegisterAgent(newMockAgent("alpha", domain.ArtifactIP, domain.ArtifactDomain)))
	require.NoError(t, reg.RegisterAgent(newMockAgent("hashonly", domain.ArtifactHash)))

	names := func(t domain.ArtifactType) []string {
		var out []string
		for _, c := range reg.AgentsFor(t) {
			out = append(out, c.Descriptor().Name)
		}
		return out
	}

	assert.Equal(t, []string{"alpha", "zeta"}, names(domain.ArtifactIP))
	assert.Equal(t, []string{"alpha"}, names(domain.ArtifactDomain))
	assert.Equal(t, []string{"hashonly"}, names(domain.ArtifactHash))
	assert.Empty(t, names(domain.ArtifactURL))
}

func TestConnectorRegistry_OrderedListings(t *testing.T) {
	reg := NewConnectorRegistry()
	require.NoError(t, reg.RegisterData(newMockFeed("threatfox")))
	require.NoError(t, reg.RegisterData(newMockFeed("abc")))
	require.NoError(t, reg.RegisterAgent(newMockAgent("greynoise", domain.ArtifactIP)))

	var feeds []string
	for _, c := range reg.DataConnectors() {
		feeds = append(feeds, c.Descriptor().Name)
	}
	assert.Equal(t, []string{"abc", "threatfox"}, feeds)

	var all []string
	for _, d := range reg.Descriptors() {
		all = append(all, d.Name)
	}
	assert.Equal(t, []string{"abc", "greynoise", "threatfox"}, all)
}

func TestConnectorRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewConnectorRegistry()
	require.NoError(t, reg.RegisterAgent(newMockAgent("vt", domain.ArtifactIP)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = reg.AgentsFor(domain.ArtifactIP)
			_, _ = reg.Lookup("vt")
		}()
		go func() {
			defer wg.Done()
			_ = reg.Descriptors()
		}()
	}
	wg.Wait()
}
