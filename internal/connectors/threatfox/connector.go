// Package threatfox implements a data connector for the abuse.ch ThreatFox
// IOC feed.
//
// ThreatFox only offers "last N days" queries, so the connector pulls seven
// days on bootstrap and one day afterwards. Consecutive hourly pulls
// therefore overlap heavily; duplicates are removed downstream.
package threatfox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-intel/internal/connectors/httpapi"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// Name is the provider identifier.
const Name = "threatfox"

// DefaultBaseURL is the ThreatFox API root.
const DefaultBaseURL = "https://threatfox-api.abuse.ch"

// Query windows in days.
const (
	BootstrapDays   = 7
	IncrementalDays = 1
)

const statusOK = "ok"

// Query statuses that mean the request will keep failing as sent.
var permanentStatuses = map[string]bool{
	"unknown_auth_key": true,
	"illegal_days":     true,
	"unknown_query":    true,
}

// Ensure Connector implements the interface.
var _ driven.DataConnector = (*Connector)(nil)

// Connector pulls recent IOCs from ThreatFox.
type Connector struct {
	client httpapi.Client
	now    func() time.Time
}

// New creates a ThreatFox connector.
func New(f driven.Fetcher, opts ...httpapi.Option) *Connector {
	o := httpapi.Apply(DefaultBaseURL, opts)
	return &Connector{
		client: httpapi.Client{Provider: Name, BaseURL: o.BaseURL, Fetcher: f},
		now:    o.Now,
	}
}

// Descriptor returns the registry metadata.
func (c *Connector) Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		Name:           Name,
		DisplayName:    "ThreatFox",
		Description:    "Recent malware IOCs shared on abuse.ch ThreatFox",
		Kind:           domain.KindData,
		ArtifactTypes:  []domain.ArtifactType{domain.ArtifactIP, domain.ArtifactDomain, domain.ArtifactURL, domain.ArtifactHash},
		CredentialKeys: []string{domain.CredentialAPIKey},
		DocsURL:        "https://threatfox.abuse.ch/api/",
	}
}

type query struct {
	Query string `json:"query"`
	Days  int    `json:"days"`
}

type iocResponse struct {
	QueryStatus string `json:"query_status"`
	// Data is a list of IOCs when query_status is ok, and a message string
	// otherwise.
	Data json.RawMessage `json:"data"`
}

type ioc struct {
	IOC              *string      `json:"ioc"`
	IOCValue         *string      `json:"ioc_value"`
	IOCType          *string      `json:"ioc_type"`
	ThreatType       *string      `json:"threat_type"`
	Malware          *string      `json:"malware"`
	MalwarePrintable *string      `json:"malware_printable"`
	ConfidenceLevel  *httpapi.Int `json:"confidence_level"`
	Reporter         *string      `json:"reporter"`
	Reference        *string      `json:"reference"`
	FirstSeen        *string      `json:"first_seen"`
	FirstSeenUTC     *string      `json:"first_seen_utc"`
	LastSeen         *string      `json:"last_seen"`
	LastSeenUTC      *string      `json:"last_seen_utc"`
	Tags             []string     `json:"tags"`
}

// Window returns the query window in days for a pull starting at last.
func Window(last domain.Watermark) int {
	if last.IsZero() {
		return BootstrapDays
	}
	return IncrementalDays
}

// Pull fetches the IOCs for the window implied by last.
func (c *Connector) Pull(ctx context.Context, last domain.Watermark, creds domain.Credentials) (domain.FeedBatch, error) {
	resp, err := c.client.PostJSON(ctx, "/api/v1/",
		query{Query: "get_iocs", Days: Window(last)},
		httpapi.Header("API-KEY", creds.APIKey(), "Accept", "application/json"))
	if err != nil {
		return domain.FeedBatch{}, err
	}
	if err := c.client.Check(resp); err != nil {
		return domain.FeedBatch{}, err
	}

	body, err := httpapi.Decode[iocResponse](Name, resp)
	if err != nil {
		return domain.FeedBatch{}, err
	}
	if permanentStatuses[body.QueryStatus] {
		return domain.FeedBatch{}, domain.NewPermanent(Name, resp.StatusCode, string(resp.Body),
			fmt.Errorf("query_status %q", body.QueryStatus))
	}

	watermark := domain.NewWatermark(c.now())
	trimmed := bytes.TrimSpace(body.Data)
	if body.QueryStatus != statusOK || len(trimmed) == 0 || trimmed[0] != '[' {
		// "no_result" and similar: nothing in the window, but the window was covered.
		return domain.FeedBatch{Records: []domain.Record{}, Watermark: watermark}, nil
	}

	var iocs []ioc
	if err := json.Unmarshal(trimmed, &iocs); err != nil {
		return domain.FeedBatch{}, domain.NewPermanent(Name, resp.StatusCode, string(resp.Body),
			fmt.Errorf("%w: %w", domain.ErrUnexpectedResponse, err))
	}

	records := make([]domain.Record, 0, len(iocs))
	for _, item := range iocs {
		if rec, ok := normalise(item); ok {
			records = append(records, rec)
		}
	}
	return domain.FeedBatch{Records: records, Watermark: watermark}, nil
}

// normalise builds a record from one IOC. Entries without a value are skipped.
func normalise(item ioc) (domain.Record, bool) {
	value := httpapi.Value(item.IOCValue)
	if value == "" {
		value = httpapi.Value(item.IOC)
	}
	if value == "" {
		return domain.Record{}, false
	}

	rec := domain.NewRecord(Name, value, KeyType(httpapi.Value(item.IOCType)))

	malware := httpapi.Value(item.Malware)
	if malware == "" {
		malware = httpapi.Value(item.MalwarePrintable)
	}
	rec.AddTags(httpapi.Value(item.ThreatType), malware)
	rec.AddTags(item.Tags...)

	confidence := int(httpapi.Value(item.ConfidenceLevel))
	rec.SetRiskScore(ConfidenceScore(confidence))

	httpapi.Put(rec.Data, "ioc_type", item.IOCType)
	httpapi.Put(rec.Data, "threat_type", item.ThreatType)
	if malware != "" {
		rec.Data["malware"] = malware
	}
	if item.ConfidenceLevel != nil {
		rec.Data["confidence"] = confidence
	}
	httpapi.Put(rec.Data, "reporter", item.Reporter)
	httpapi.Put(rec.Data, "reference", item.Reference)
	putFirst(rec.Data, "first_seen", item.FirstSeenUTC, item.FirstSeen)
	putFirst(rec.Data, "last_seen", item.LastSeenUTC, item.LastSeen)
	return rec, true
}

func putFirst(data map[string]any, key string, candidates ...*string) {
	for _, c := range candidates {
		if c != nil {
			data[key] = *c
			return
		}
	}
}

// ConfidenceScore maps a ThreatFox confidence level to a risk score.
func ConfidenceScore(confidence int) int {
	switch {
	case confidence >= 75:
		return 90
	case confidence >= 50:
		return 70
	default:
		return 50
	}
}

// KeyType infers the artifact type of an IOC from its ioc_type. Values
// like "ip:port" are not bare artifacts, so they carry no key type and
// consumers infer it from the value.
func KeyType(iocType string) domain.ArtifactType {
	t := strings.ToLower(iocType)
	switch {
	case t == "domain":
		return domain.ArtifactDomain
	case t == "url":
		return domain.ArtifactURL
	case t == "ip":
		return domain.ArtifactIP
	case strings.HasSuffix(t, "_hash"):
		return domain.ArtifactHash
	default:
		return ""
	}
}
