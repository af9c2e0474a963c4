// Package otx implements an agent connector for AlienVault OTX indicator
// lookups, scoring artifacts by how many community pulses mention them.
package otx

import (
	"context"
	"net/http"

	"github.com/custodia-labs/sercha-intel/internal/connectors/httpapi"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// Name is the provider identifier.
const Name = "otx"

// DefaultBaseURL is the OTX API root.
const DefaultBaseURL = "https://otx.alienvault.com"

const (
	pointsPerPulse  = 15
	multiPulseCount = 5
	keptPulses      = 5
)

// Ensure Connector implements the interface.
var _ driven.AgentConnector = (*Connector)(nil)

func indicator(section string) httpapi.Route {
	return httpapi.Route{
		Segment: section,
		Path: func(v string) string {
			return "/api/v1/indicators/" + section + "/" + httpapi.EscapeComponent(v) + "/general"
		},
	}
}

// Types without a route degrade to an IPv4 lookup.
var routes = httpapi.Routes{
	ByType: map[domain.ArtifactType]httpapi.Route{
		domain.ArtifactIP:     indicator("IPv4"),
		domain.ArtifactDomain: indicator("domain"),
		domain.ArtifactHash:   indicator("file"),
		domain.ArtifactURL:    indicator("url"),
	},
	Fallback: domain.ArtifactIP,
}

// Connector looks up indicators in OTX.
type Connector struct {
	client httpapi.Client
}

// New creates an OTX connector.
func New(f driven.Fetcher, opts ...httpapi.Option) *Connector {
	o := httpapi.Apply(DefaultBaseURL, opts)
	return &Connector{client: httpapi.Client{Provider: Name, BaseURL: o.BaseURL, Fetcher: f}}
}

// Descriptor returns the registry metadata.
func (c *Connector) Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		Name:           Name,
		DisplayName:    "AlienVault OTX",
		Description:    "Community threat pulses mentioning an indicator",
		Kind:           domain.KindAgent,
		ArtifactTypes:  routes.Types(),
		CredentialKeys: []string{domain.CredentialAPIKey},
		RequiresAuth:   true,
		DocsURL:        "https://otx.alienvault.com/api",
	}
}

type generalResponse struct {
	PulseInfo   *pulseInfo   `json:"pulse_info"`
	Count       *httpapi.Int `json:"count"`
	Reputation  *int         `json:"reputation"`
	CountryCode *string      `json:"country_code"`
	Country     *string      `json:"country"`
}

type pulseInfo struct {
	Count  *httpapi.Int `json:"count"`
	Pulses []Pulse      `json:"pulses"`
}

// Pulse is the summary kept in Record.Data for each of the first pulses.
type Pulse struct {
	Name    string   `json:"name"`
	Created string   `json:"created"`
	Tags    []string `json:"tags"`
}

// Enrich looks up one indicator. The record keeps the caller's
// artifact type even when the request degraded to IPv4.
func (c *Connector) Enrich(ctx context.Context, artifact domain.Artifact, creds domain.Credentials) (domain.Record, error) {
	route, err := routes.Resolve(Name, artifact.Type)
	if err != nil {
		return domain.Record{}, err
	}
	key, err := httpapi.RequireAPIKey(Name, creds)
	if err != nil {
		return domain.Record{}, err
	}

	resp, err := c.client.Get(ctx, route.Path(artifact.Value), httpapi.Header("X-OTX-API-KEY", key))
	if err != nil {
		return domain.Record{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.NotFoundRecord(Name, artifact.Value, artifact.Type, map[string]any{
			"pulse_count": 0,
		}), nil
	}
	if err := c.client.Check(resp); err != nil {
		return domain.Record{}, err
	}

	body, err := httpapi.Decode[generalResponse](Name, resp)
	if err != nil {
		return domain.Record{}, err
	}
	return normalise(artifact, body), nil
}

func normalise(artifact domain.Artifact, r generalResponse) domain.Record {
	rec := domain.NewRecord(Name, artifact.Value, artifact.Type)
	rec.Data[domain.DataFound] = true

	count := pulseCount(r)
	if count > 0 {
		rec.AddTags("in-pulse")
	}
	if count >= multiPulseCount {
		rec.AddTags("multi-pulse")
	}
	rec.SetRiskScore(min(count, domain.MaxRiskScore) * pointsPerPulse)

	rec.Data["pulse_count"] = count
	httpapi.Put(rec.Data, "reputation", r.Reputation)
	if r.CountryCode != nil {
		rec.Data["country"] = *r.CountryCode
	} else {
		httpapi.Put(rec.Data, "country", r.Country)
	}

	pulses := make([]Pulse, 0, keptPulses)
	if r.PulseInfo != nil {
		for i, p := range r.PulseInfo.Pulses {
			if i == keptPulses {
				break
			}
			pulses = append(pulses, p)
		}
	}
	rec.Data["pulses"] = pulses
	return rec
}

// pulseCount prefers pulse_info.count, then a top-level count.
func pulseCount(r generalResponse) int {
	var n int
	switch {
	case r.PulseInfo != nil && r.PulseInfo.Count != nil:
		n = int(*r.PulseInfo.Count)
	case r.Count != nil:
		n = int(*r.Count)
	}
	return max(n, 0)
}
