// Package virustotal implements an agent connector for VirusTotal v3
// multi-engine analysis results.
package virustotal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math"
	"net/http"

	"github.com/custodia-labs/sercha-intel/internal/connectors/httpapi"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// Name is the provider identifier.
const Name = "virustotal"

// DefaultBaseURL is the VirusTotal API root.
const DefaultBaseURL = "https://www.virustotal.com"

const (
	maxNames = 5
	maxWhois = 500
)

// Ensure Connector implements the interface.
var _ driven.AgentConnector = (*Connector)(nil)

func object(collection string, id func(string) string) httpapi.Route {
	return httpapi.Route{
		Segment: collection,
		Path:    func(v string) string { return "/api/v3/" + collection + "/" + id(v) },
	}
}

// URLID returns the VirusTotal identifier of a URL: its unpadded base64url
// encoding.
func URLID(u string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(u))
}

// Unknown types degrade to a file lookup.
var routes = httpapi.Routes{
	ByType: map[domain.ArtifactType]httpapi.Route{
		domain.ArtifactHash:   object("files", httpapi.EscapeComponent),
		domain.ArtifactDomain: object("domains", httpapi.EscapeComponent),
		domain.ArtifactIP:     object("ip_addresses", httpapi.EscapeComponent),
		domain.ArtifactURL:    object("urls", URLID),
	},
	Fallback: domain.ArtifactHash,
}

// Connector looks up objects in VirusTotal.
type Connector struct {
	client httpapi.Client
}

// New creates a VirusTotal connector.
func New(f driven.Fetcher, opts ...httpapi.Option) *Connector {
	o := httpapi.Apply(DefaultBaseURL, opts)
	return &Connector{client: httpapi.Client{Provider: Name, BaseURL: o.BaseURL, Fetcher: f}}
}

// Descriptor returns the registry metadata.
func (c *Connector) Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		Name:           Name,
		DisplayName:    "VirusTotal",
		Description:    "Multi-engine detections for files, URLs, domains and IPs",
		Kind:           domain.KindAgent,
		ArtifactTypes:  routes.Types(),
		CredentialKeys: []string{domain.CredentialAPIKey},
		RequiresAuth:   true,
		DocsURL:        "https://docs.virustotal.com/reference/overview",
	}
}

type objectResponse struct {
	Data *struct {
		Attributes attributes `json:"attributes"`
	} `json:"data"`
}

type attributes struct {
	LastAnalysisStats           analysisStats         `json:"last_analysis_stats"`
	Reputation                  *int                  `json:"reputation"`
	Tags                        []string              `json:"tags"`
	Categories                  json.RawMessage       `json:"categories"`
	LastAnalysisDate            *int64                `json:"last_analysis_date"`
	PopularThreatClassification *threatClassification `json:"popular_threat_classification"`

	// files
	TypeDescription *string  `json:"type_description"`
	Size            *int64   `json:"size"`
	Names           []string `json:"names"`

	// domains
	Registrar    *string `json:"registrar"`
	CreationDate *int64  `json:"creation_date"`
	Whois        *string `json:"whois"`

	// ip_addresses
	Country *string `json:"country"`
	ASOwner *string `json:"as_owner"`
	Network *string `json:"network"`
}

type analysisStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Undetected int `json:"undetected"`
	Harmless   int `json:"harmless"`
}

type threatClassification struct {
	SuggestedThreatLabel *string `json:"suggested_threat_label"`
}

// Enrich looks up one object. A 404 is a not-found record.
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
		httpapi.Header("x-apikey", key, "Accept", "application/json"))
	if err != nil {
		return domain.Record{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.NotFoundRecord(Name, artifact.Value, artifact.Type, nil), nil
	}
	if err := c.client.Check(resp); err != nil {
		return domain.Record{}, err
	}

	body, err := httpapi.Decode[objectResponse](Name, resp)
	if err != nil {
		return domain.Record{}, err
	}
	var attrs attributes
	if body.Data != nil {
		attrs = body.Data.Attributes
	}
	return normalise(artifact, route.Segment, attrs), nil
}

// RiskScore weighs suspicious verdicts at half a malicious one, over all
// engines that produced a verdict. Zero engines yields zero.
func RiskScore(malicious, suspicious, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round((float64(malicious) + 0.5*float64(suspicious)) / float64(total) * 100))
}

func normalise(artifact domain.Artifact, collection string, a attributes) domain.Record {
	rec := domain.NewRecord(Name, artifact.Value, artifact.Type)
	rec.Data[domain.DataFound] = true

	s := a.LastAnalysisStats
	total := s.Malicious + s.Suspicious + s.Undetected + s.Harmless

	var label *string
	if a.PopularThreatClassification != nil {
		label = a.PopularThreatClassification.SuggestedThreatLabel
	}

	if s.Malicious > 0 {
		rec.AddTags("malicious")
	}
	if s.Suspicious > 0 {
		rec.AddTags("suspicious")
	}
	rec.AddTags(a.Tags...)
	rec.AddTags(httpapi.Value(label))
	rec.SetRiskScore(RiskScore(s.Malicious, s.Suspicious, total))

	rec.Data["malicious_count"] = s.Malicious
	rec.Data["suspicious_count"] = s.Suspicious
	rec.Data["total_engines"] = total
	httpapi.Put(rec.Data, "reputation", a.Reputation)
	httpapi.Put(rec.Data, "threat_label", label)
	httpapi.PutRaw(rec.Data, "categories", a.Categories)
	httpapi.Put(rec.Data, "last_analysis_date", a.LastAnalysisDate)

	switch collection {
	case "files":
		httpapi.Put(rec.Data, "file_type", a.TypeDescription)
		httpapi.Put(rec.Data, "file_size", a.Size)
		if a.Names != nil {
			names := a.Names
			if len(names) > maxNames {
				names = names[:maxNames]
			}
			rec.Data["names"] = names
		}
	case "domains":
		httpapi.Put(rec.Data, "registrar", a.Registrar)
		httpapi.Put(rec.Data, "creation_date", a.CreationDate)
		if a.Whois != nil {
			rec.Data["whois"] = truncate(*a.Whois, maxWhois)
		}
	case "ip_addresses":
		httpapi.Put(rec.Data, "country", a.Country)
		httpapi.Put(rec.Data, "as_owner", a.ASOwner)
		httpapi.Put(rec.Data, "network", a.Network)
	}
	return rec
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
