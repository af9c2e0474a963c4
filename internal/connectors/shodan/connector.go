// Package shodan implements an agent connector for Shodan host data.
//
// Domain lookups are chained: the domain is resolved to an IP through the
// DNS endpoint, then the host endpoint is queried for that IP.
package shodan

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-intel/internal/connectors/httpapi"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-intel/internal/logger"
)

// Name is the provider identifier.
const Name = "shodan"

// DefaultBaseURL is the Shodan API root.
const DefaultBaseURL = "https://api.shodan.io"

// Score weights.
const (
	baseScore     = 20
	pointsPerPort = 3
	pointsPerVuln = 15
)

// Ensure Connector implements the interface.
var _ driven.AgentConnector = (*Connector)(nil)

// The API key travels in the query string, so paths are built without it
// and withKey appends it just before the request is issued.
var routes = httpapi.Routes{
	ByType: map[domain.ArtifactType]httpapi.Route{
		domain.ArtifactIP:     {Segment: "host", Path: hostPath},
		domain.ArtifactDomain: {Segment: "resolve", Path: resolvePath},
	},
}

func hostPath(ip string) string {
	return "/shodan/host/" + httpapi.EscapeComponent(ip)
}

func resolvePath(domainName string) string {
	return "/dns/resolve?hostnames=" + httpapi.EscapeComponent(domainName)
}

func withKey(path, key string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "key=" + httpapi.EscapeComponent(key)
}

// Connector looks up hosts in Shodan.
type Connector struct {
	client httpapi.Client
}

// New creates a Shodan connector.
func New(f driven.Fetcher, opts ...httpapi.Option) *Connector {
	o := httpapi.Apply(DefaultBaseURL, opts)
	return &Connector{client: httpapi.Client{Provider: Name, BaseURL: o.BaseURL, Fetcher: f}}
}

// Descriptor returns the registry metadata.
func (c *Connector) Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		Name:           Name,
		DisplayName:    "Shodan",
		Description:    "Open ports, services and known vulnerabilities of internet hosts",
		Kind:           domain.KindAgent,
		ArtifactTypes:  routes.Types(),
		CredentialKeys: []string{domain.CredentialAPIKey},
		RequiresAuth:   true,
		DocsURL:        "https://developer.shodan.io/api",
	}
}

type hostResponse struct {
	IPStr       *string         `json:"ip_str"`
	Hostnames   []string        `json:"hostnames"`
	CountryCode *string         `json:"country_code"`
	City        *string         `json:"city"`
	Org         *string         `json:"org"`
	ISP         *string         `json:"isp"`
	OS          *string         `json:"os"`
	Ports       []int           `json:"ports"`
	Vulns       json.RawMessage `json:"vulns"`
	Tags        []string        `json:"tags"`
	LastUpdate  *string         `json:"last_update"`
}

// Enrich looks up an IP, or resolves a domain and looks up its IP.
func (c *Connector) Enrich(ctx context.Context, artifact domain.Artifact, creds domain.Credentials) (domain.Record, error) {
	route, err := routes.Resolve(Name, artifact.Type)
	if err != nil {
		return domain.Record{}, err
	}
	key, err := httpapi.RequireAPIKey(Name, creds)
	if err != nil {
		return domain.Record{}, err
	}

	if artifact.Type == domain.ArtifactDomain {
		return c.enrichDomain(ctx, artifact.Value, key)
	}

	resp, err := c.client.Get(ctx, withKey(route.Path(artifact.Value), key), nil)
	if err != nil {
		return domain.Record{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.NotFoundRecord(Name, artifact.Value, domain.ArtifactIP, nil), nil
	}
	if err := c.client.Check(resp); err != nil {
		return domain.Record{}, err
	}
	host, err := httpapi.Decode[hostResponse](Name, resp)
	if err != nil {
		return domain.Record{}, err
	}
	return normalise(artifact.Value, domain.ArtifactIP, host), nil
}

// enrichDomain resolves the domain, then queries the host. A failed host
// query after a successful resolution keeps the resolved IP and marks the
// record incomplete.
func (c *Connector) enrichDomain(ctx context.Context, name, key string) (domain.Record, error) {
	resp, err := c.client.Get(ctx, withKey(resolvePath(name), key), nil)
	if err != nil {
		return domain.Record{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.NotFoundRecord(Name, name, domain.ArtifactDomain, nil), nil
	}
	if err := c.client.Check(resp); err != nil {
		return domain.Record{}, err
	}
	resolved, err := httpapi.Decode[map[string]*string](Name, resp)
	if err != nil {
		return domain.Record{}, err
	}
	ip := httpapi.Value(resolved[name])
	if ip == "" {
		return domain.NotFoundRecord(Name, name, domain.ArtifactDomain, nil), nil
	}

	partial := func(cause error) domain.Record {
		logger.With("provider", Name).Debugw("host lookup failed after resolution", "error", cause)
		return domain.NotFoundRecord(Name, name, domain.ArtifactDomain, map[string]any{
			"resolved_ip":         ip,
			domain.DataIncomplete: true,
		})
	}

	hostResp, err := c.client.Get(ctx, withKey(hostPath(ip), key), nil)
	if err != nil {
		return partial(err), nil
	}
	if !hostResp.OK() {
		return partial(c.client.Check(hostResp)), nil
	}
	host, err := httpapi.Decode[hostResponse](Name, hostResp)
	if err != nil {
		return partial(err), nil
	}

	rec := normalise(name, domain.ArtifactDomain, host)
	rec.Data["resolved_ip"] = ip
	return rec, nil
}

func normalise(key string, keyType domain.ArtifactType, h hostResponse) domain.Record {
	rec := domain.NewRecord(Name, key, keyType)
	rec.Data[domain.DataFound] = true

	ports := h.Ports
	if ports == nil {
		ports = []int{}
	}
	vulns := vulnIDs(h.Vulns)

	for _, p := range ports {
		switch p {
		case 22:
			rec.AddTags("ssh")
		case 3389:
			rec.AddTags("rdp")
		}
	}
	if len(vulns) > 0 {
		rec.AddTags("vulnerable")
	}
	rec.AddTags(h.Tags...)
	rec.SetRiskScore(baseScore + len(ports)*pointsPerPort + len(vulns)*pointsPerVuln)

	httpapi.Put(rec.Data, "ip", h.IPStr)
	httpapi.PutSlice(rec.Data, "hostnames", h.Hostnames)
	httpapi.Put(rec.Data, "country_code", h.CountryCode)
	httpapi.Put(rec.Data, "city", h.City)
	httpapi.Put(rec.Data, "org", h.Org)
	httpapi.Put(rec.Data, "isp", h.ISP)
	httpapi.Put(rec.Data, "os", h.OS)
	rec.Data["ports"] = ports
	if vulns != nil {
		rec.Data["vulns"] = vulns
	}
	httpapi.Put(rec.Data, "last_update", h.LastUpdate)
	return rec
}

// vulnIDs accepts the host endpoint's vulns as either a list of CVE IDs or
// an object keyed by CVE ID. The result is sorted for determinism.
func vulnIDs(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		sort.Strings(list)
		return list
	}
	var byID map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byID); err == nil {
		ids := make([]string, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids
	}
	return nil
}
