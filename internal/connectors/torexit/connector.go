// Package torexit implements a data connector for the Tor Project's bulk
// exit node list.
//
// The list is a full snapshot, so bootstrap and incremental pulls fetch the
// same document and every pull re-delivers every exit node.
package torexit

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-intel/internal/connectors/httpapi"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

// Name is the provider identifier.
const Name = "torexit"

// DefaultBaseURL is the Tor check service root.
const DefaultBaseURL = "https://check.torproject.org"

// exitScore is the fixed risk score of a Tor exit node.
const exitScore = 40

// source is recorded on every record.
const source = "torproject.org"

// Ensure Connector implements the interface.
var _ driven.DataConnector = (*Connector)(nil)

// Connector pulls the Tor exit node list.
type Connector struct {
	client httpapi.Client
	now    func() time.Time
}

// New creates a Tor exit list connector.
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
		Name:          Name,
		DisplayName:   "Tor Exit Nodes",
		Description:   "Current Tor exit relay addresses",
		Kind:          domain.KindData,
		ArtifactTypes: []domain.ArtifactType{domain.ArtifactIP},
		DocsURL:       "https://check.torproject.org/torbulkexitlist",
	}
}

// Pull fetches the exit list. The watermark is ignored for the request.
func (c *Connector) Pull(ctx context.Context, _ domain.Watermark, _ domain.Credentials) (domain.FeedBatch, error) {
	resp, err := c.client.Get(ctx, "/torbulkexitlist?ip=1.1.1.1", httpapi.Header("Accept", "text/plain"))
	if err != nil {
		return domain.FeedBatch{}, err
	}
	if err := c.client.Check(resp); err != nil {
		return domain.FeedBatch{}, err
	}

	fetched := c.now()
	fetchedAt := fetched.UTC().Format(time.RFC3339Nano)
	records := make([]domain.Record, 0)

	sc := bufio.NewScanner(bytes.NewReader(resp.Body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec := domain.NewRecord(Name, line, domain.ArtifactIP)
		rec.SetRiskScore(exitScore)
		rec.AddTags("tor", "exit-node")
		rec.Data["source"] = source
		rec.Data["node_type"] = "exit"
		rec.Data["fetched_at"] = fetchedAt
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return domain.FeedBatch{}, domain.NewPermanent(Name, resp.StatusCode, string(resp.Body), err)
	}

	return domain.FeedBatch{Records: records, Watermark: domain.NewWatermark(fetched)}, nil
}
