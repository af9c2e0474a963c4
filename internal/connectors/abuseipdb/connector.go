// Package abuseipdb implements an agent connector for AbuseIPDB IP reputation.
package abuseipdb

import (
	"context"
	"net/http"

	"github.com/custodia-labs/sercha-intel/internal/connectors/httpapi"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// Name is the provider identifier.
const Name = "abuseipdb"

// DefaultBaseURL is the AbuseIPDB API root.
const DefaultBaseURL = "https://api.abuseipdb.com"

// highAbuseThreshold is the confidence score at which "high-abuse" is tagged.
const highAbuseThreshold = 80

// Ensure Connector implements the interface.
var _ driven.AgentConnector = (*Connector)(nil)

var routes = httpapi.Routes{
	ByType: map[domain.ArtifactType]httpapi.Route{
		domain.ArtifactIP: {
			Path: func(ip string) string {
				return "/api/v2/check?ipAddress=" + httpapi.EscapeComponent(ip) + "&maxAgeInDays=90&verbose"
			},
		},
	},
}

// Connector looks up IP addresses in AbuseIPDB.
type Connector struct {
	client httpapi.Client
}

// New creates an AbuseIPDB connector.
func New(f driven.Fetcher, opts ...httpapi.Option) *Connector {
	o := httpapi.Apply(DefaultBaseURL, opts)
	return &Connector{client: httpapi.Client{Provider: Name, BaseURL: o.BaseURL, Fetcher: f}}
}

// Descriptor returns the registry metadata.
func (c *Connector) Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		Name:           Name,
		DisplayName:    "AbuseIPDB",
		Description:    "IP reputation from community abuse reports",
		Kind:           domain.KindAgent,
		ArtifactTypes:  routes.Types(),
		CredentialKeys: []string{domain.CredentialAPIKey},
		RequiresAuth:   true,
		DocsURL:        "https://docs.abuseipdb.com/#check-endpoint",
	}
}

// checkResponse is the subset of the check endpoint we read.
type checkResponse struct {
	Data *checkData `json:"data"`
}

type checkData struct {
	AbuseConfidenceScore *int    `json:"abuseConfidenceScore"`
	TotalReports         *int    `json:"totalReports"`
	CountryCode          *string `json:"countryCode"`
	ISP                  *string `json:"isp"`
	Domain               *string `json:"domain"`
	UsageType            *string `json:"usageType"`
	IsTor                *bool   `json:"isTor"`
	IsWhitelisted        *bool   `json:"isWhitelisted"`
	LastReportedAt       *string `json:"lastReportedAt"`
}

// Enrich looks up one IP address. Records always carry key_type ip.
// A 404 is reported as a not-found record.
func (c *Connector) Enrich(ctx context.Context, artifact domain.Artifact, creds domain.Credentials) (domain.Record, error) {
	route, err := routes.Resolve(Name, artifact.Type)
	if err != nil {
		return domain.Record{}, err
	}
	key, err := httpapi.RequireAPIKey(Name, creds)
	if err != nil {
		return domain.Record{}, err
	}

	resp, err := c.client.Get(ctx, route.Path(artifact.Value),
		httpapi.Header("Key", key, "Accept", "application/json"))
	if err != nil {
		return domain.Record{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.NotFoundRecord(Name, artifact.Value, domain.ArtifactIP, nil), nil
	}
	if err := c.client.Check(resp); err != nil {
		return domain.Record{}, err
	}

	body, err := httpapi.Decode[checkResponse](Name, resp)
	if err != nil {
		return domain.Record{}, err
	}
	if body.Data == nil {
		return domain.NotFoundRecord(Name, artifact.Value, domain.ArtifactIP, nil), nil
	}
	return normalise(artifact.Value, body.Data), nil
}

func normalise(ip string, d *checkData) domain.Record {
	rec := domain.NewRecord(Name, ip, domain.ArtifactIP)
	rec.Data[domain.DataFound] = true

	score := httpapi.Value(d.AbuseConfidenceScore)
	rec.SetRiskScore(score)

	if httpapi.Value(d.IsTor) {
		rec.AddTags("tor")
	}
	if httpapi.Value(d.IsWhitelisted) {
		rec.AddTags("whitelisted")
	}
	if httpapi.Value(d.TotalReports) > 0 {
		rec.AddTags("reported")
	}
	if score >= highAbuseThreshold {
		rec.AddTags("high-abuse")
	}

	httpapi.Put(rec.Data, "abuse_confidence", d.AbuseConfidenceScore)
	httpapi.Put(rec.Data, "total_reports", d.TotalReports)
	httpapi.Put(rec.Data, "country_code", d.CountryCode)
	httpapi.Put(rec.Data, "isp", d.ISP)
	httpapi.Put(rec.Data, "domain", d.Domain)
	httpapi.Put(rec.Data, "usage_type", d.UsageType)
	httpapi.Put(rec.Data, "is_tor", d.IsTor)
	httpapi.Put(rec.Data, "is_whitelisted", d.IsWhitelisted)
	httpapi.Put(rec.Data, "last_reported_at", d.LastReportedAt)
	return rec
}
