// Package greynoise implements an agent connector for the GreyNoise
// community API, which classifies IPs seen scanning the internet.
package greynoise

import (
	"context"
	"net/http"

	"github.com/custodia-labs/sercha-intel/internal/connectors/httpapi"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// Name is the provider identifier.
const Name = "greynoise"

// DefaultBaseURL is the GreyNoise API root.
const DefaultBaseURL = "https://api.greynoise.io"

// Classification values reported by GreyNoise.
const (
	classMalicious = "malicious"
	classBenign    = "benign"
	classUnknown   = "unknown"
)

// Ensure Connector implements the interface.
var _ driven.AgentConnector = (*Connector)(nil)

var routes = httpapi.Routes{
	ByType: map[domain.ArtifactType]httpapi.Route{
		domain.ArtifactIP: {
			Path: func(ip string) string { return "/v3/community/" + httpapi.EscapeComponent(ip) },
		},
	},
}

// Connector looks up IP addresses in GreyNoise.
type Connector struct {
	client httpapi.Client
}

// New creates a GreyNoise connector.
func New(f driven.Fetcher, opts ...httpapi.Option) *Connector {
	o := httpapi.Apply(DefaultBaseURL, opts)
	return &Connector{client: httpapi.Client{Provider: Name, BaseURL: o.BaseURL, Fetcher: f}}
}

// Descriptor returns the registry metadata.
func (c *Connector) Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		Name:           Name,
		DisplayName:    "GreyNoise",
		Description:    "Internet background noise and benign service classification",
		Kind:           domain.KindAgent,
		ArtifactTypes:  routes.Types(),
		CredentialKeys: []string{domain.CredentialAPIKey},
		DocsURL:        "https://docs.greynoise.io/reference/get_v3-community-ip",
	}
}

type communityResponse struct {
	Noise          *bool   `json:"noise"`
	RIOT           *bool   `json:"riot"`
	Classification *string `json:"classification"`
	Name           *string `json:"name"`
	Link           *string `json:"link"`
	LastSeen       *string `json:"last_seen"`
	Message        *string `json:"message"`
}

// Enrich classifies one IP. The community API answers 404 for IPs it has
// never observed; that is a not-found record with noise and riot false.
// The API key is optional; anonymous calls get a lower rate limit.
func (c *Connector) Enrich(ctx context.Context, artifact domain.Artifact, creds domain.Credentials) (domain.Record, error) {
	route, err := routes.Resolve(Name, artifact.Type)
	if err != nil {
		return domain.Record{}, err
	}

	resp, err := c.client.Get(ctx, route.Path(artifact.Value),
		httpapi.Header("key", creds.APIKey(), "Accept", "application/json"))
	if err != nil {
		return domain.Record{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.NotFoundRecord(Name, artifact.Value, domain.ArtifactIP, map[string]any{
			"noise": false,
			"riot":  false,
		}), nil
	}
	if err := c.client.Check(resp); err != nil {
		return domain.Record{}, err
	}

	body, err := httpapi.Decode[communityResponse](Name, resp)
	if err != nil {
		return domain.Record{}, err
	}
	return normalise(artifact.Value, body), nil
}

func normalise(ip string, r communityResponse) domain.Record {
	rec := domain.NewRecord(Name, ip, domain.ArtifactIP)
	rec.Data[domain.DataFound] = true

	noise := httpapi.Value(r.Noise)
	class := httpapi.Value(r.Classification)

	if noise {
		rec.AddTags("internet-noise")
	}
	if httpapi.Value(r.RIOT) {
		rec.AddTags("benign-service")
	}
	switch class {
	case classMalicious:
		rec.AddTags("malicious")
	case classBenign:
		rec.AddTags("benign")
	}
	rec.SetRiskScore(score(class, noise))

	httpapi.Put(rec.Data, "noise", r.Noise)
	httpapi.Put(rec.Data, "riot", r.RIOT)
	httpapi.Put(rec.Data, "classification", r.Classification)
	httpapi.Put(rec.Data, "name", r.Name)
	httpapi.Put(rec.Data, "link", r.Link)
	httpapi.Put(rec.Data, "last_seen", r.LastSeen)
	httpapi.Put(rec.Data, "message", r.Message)
	return rec
}

func score(class string, noise bool) int {
	switch {
	case class == classMalicious:
		return 80
	case class == classUnknown && noise:
		return 40
	case class == classBenign:
		return 5
	default:
		return 0
	}
}
