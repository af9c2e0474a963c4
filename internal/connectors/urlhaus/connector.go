// Package urlhaus implements an agent connector for abuse.ch URLhaus,
// which tracks URLs and hosts distributing malware.
package urlhaus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-intel/internal/connectors/httpapi"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// Name is the provider identifier.
const Name = "urlhaus"

// DefaultBaseURL is the URLhaus API root.
const DefaultBaseURL = "https://urlhaus-api.abuse.ch"

// Query statuses reported in the response body.
const (
	statusOK        = "ok"
	statusNoResults = "no_results"
)

// notListed is the blacklist value for a clean entry.
const notListed = "not listed"

// Ensure Connector implements the interface.
var _ driven.AgentConnector = (*Connector)(nil)

// Domains query the host endpoint. IPs are hosts too. Every other type
// degrades to the URL endpoint, which answers no_results for values that
// are not URLs.
var routes = httpapi.Routes{
	ByType: map[domain.ArtifactType]httpapi.Route{
		domain.ArtifactDomain: {Segment: "host", Path: constPath("/v1/host/"), FormField: "host"},
		domain.ArtifactIP:     {Segment: "host", Path: constPath("/v1/host/"), FormField: "host"},
		domain.ArtifactURL:    {Segment: "url", Path: constPath("/v1/url/"), FormField: "url"},
	},
	Fallback: domain.ArtifactURL,
}

func constPath(p string) func(string) string {
	return func(string) string { return p }
}

// Connector looks up URLs and hosts in URLhaus.
type Connector struct {
	client httpapi.Client
}

// New creates a URLhaus connector.
func New(f driven.Fetcher, opts ...httpapi.Option) *Connector {
	o := httpapi.Apply(DefaultBaseURL, opts)
	return &Connector{client: httpapi.Client{Provider: Name, BaseURL: o.BaseURL, Fetcher: f}}
}

// Descriptor returns the registry metadata.
func (c *Connector) Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		Name:           Name,
		DisplayName:    "URLhaus",
		Description:    "Malware distribution URLs and hosts from abuse.ch",
		Kind:           domain.KindAgent,
		ArtifactTypes:  routes.Types(),
		CredentialKeys: []string{domain.CredentialAPIKey},
		DocsURL:        "https://urlhaus-api.abuse.ch/",
	}
}

type lookupResponse struct {
	QueryStatus string          `json:"query_status"`
	Threat      *string         `json:"threat"`
	URLStatus   *string         `json:"url_status"`
	URLCount    *httpapi.Int    `json:"url_count"`
	URLsOnline  *httpapi.Int    `json:"urls_online"`
	Blacklists  json.RawMessage `json:"blacklists"`
	DateAdded   *string         `json:"date_added"`
	FirstSeen   *string         `json:"firstseen"`
	Host        *string         `json:"host"`
	Tags        []string        `json:"tags"`
}

type blacklists struct {
	SpamhausDBL *string `json:"spamhaus_dbl"`
}

// Enrich looks up one URL or host.
func (c *Connector) Enrich(ctx context.Context, artifact domain.Artifact, creds domain.Credentials) (domain.Record, error) {
	route, err := routes.Resolve(Name, artifact.Type)
	if err != nil {
		return domain.Record{}, err
	}

	resp, err := c.client.PostForm(ctx, route.Path(artifact.Value),
		httpapi.Form{{route.FormField, artifact.Value}},
		httpapi.Header("Auth-Key", creds.APIKey()))
	if err != nil {
		return domain.Record{}, err
	}
	if err := c.client.Check(resp); err != nil {
		return domain.Record{}, err
	}

	body, err := httpapi.Decode[lookupResponse](Name, resp)
	if err != nil {
		return domain.Record{}, err
	}
	switch body.QueryStatus {
	case statusNoResults:
		return domain.NotFoundRecord(Name, artifact.Value, artifact.Type, nil), nil
	case statusOK:
		return normalise(artifact, body), nil
	default:
		// invalid_url, invalid_host, unknown_auth_key and friends
		return domain.Record{}, domain.NewPermanent(Name, resp.StatusCode, string(resp.Body),
			fmt.Errorf("query_status %q", body.QueryStatus))
	}
}

func normalise(artifact domain.Artifact, r lookupResponse) domain.Record {
	rec := domain.NewRecord(Name, artifact.Value, artifact.Type)
	rec.Data[domain.DataFound] = true

	threat := httpapi.Value(r.Threat)
	online := int(httpapi.Value(r.URLsOnline))

	rec.AddTags(threat)
	rec.AddTags(r.Tags...)
	if httpapi.Value(r.URLStatus) == "online" {
		rec.AddTags("online")
	}
	if spamhausListed(r.Blacklists) {
		rec.AddTags("spamhaus-listed")
	}

	switch {
	case threat == "malware_download":
		rec.SetRiskScore(90)
	case online > 0:
		rec.SetRiskScore(70)
	default:
		rec.SetRiskScore(30)
	}

	httpapi.Put(rec.Data, "threat", r.Threat)
	httpapi.Put(rec.Data, "url_status", r.URLStatus)
	if r.URLCount != nil {
		rec.Data["url_count"] = int(*r.URLCount)
	}
	if r.URLsOnline != nil {
		rec.Data["urls_online"] = online
	}
	httpapi.PutRaw(rec.Data, "blacklists", r.Blacklists)
	if r.DateAdded != nil {
		rec.Data["date_added"] = *r.DateAdded
	} else {
		httpapi.Put(rec.Data, "date_added", r.FirstSeen)
	}
	httpapi.Put(rec.Data, "host", r.Host)
	return rec
}

func spamhausListed(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var bl blacklists
	if err := json.Unmarshal(raw, &bl); err != nil {
		return false
	}
	v := httpapi.Value(bl.SpamhausDBL)
	return v != "" && v != notListed
}
