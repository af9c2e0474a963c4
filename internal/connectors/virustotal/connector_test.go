package virustotal

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-intel/internal/connectors/httpapi/fetchtest"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
)

var creds = domain.Credentials{domain.CredentialAPIKey: "vt-key"}

func TestRiskScore(t *testing.T) {
	tests := []struct {
		name                         string
		malicious, suspicious, total int
		want                         int
	}{
		{"no engines", 0, 0, 0, 0},
		{"clean", 0, 0, 70, 0},
		{"half malicious", 35, 0, 70, 50},
		{"suspicious weighs half", 0, 10, 70, 7},
		{"mixed rounds", 10, 3, 70, 16},
		{"all malicious", 70, 0, 70, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskScore(tt.malicious, tt.suspicious, tt.total))
		})
	}
}

func TestURLID(t *testing.T) {
	assert.Equal(t, "aHR0cDovL2V4YW1wbGUuY29tLw", URLID("http://example.com/"))
	assert.False(t, strings.HasSuffix(URLID("http://a.example/?q=1"), "="))
	assert.NotContains(t, URLID("http://a.example/??>>"), "+")
	assert.NotContains(t, URLID("http://a.example/??>>"), "/")
}

func TestEnrich_File(t *testing.T) {
	body := `{"data":{"id":"44d8","type":"file","attributes":{
		"last_analysis_stats":{"malicious":60,"suspicious":2,"undetected":8,"harmless":0,"timeout":3},
		"reputation":-50,"tags":["peexe","Overlay"],"last_analysis_date":1735689600,
		"popular_threat_classification":{"suggested_threat_label":"trojan.eicar/test"},
		"type_description":"Win32 EXE","size":68,
		"names":["a.exe","b.exe","c.exe","d.exe","e.exe","f.exe"]}}}`
	f := fetchtest.New(fetchtest.JSON(200, body))

	rec, err := New(f).Enrich(context.Background(),
		domain.Artifact{Value: "44d88612fea8a8f36de82e1278abb02f", Type: domain.ArtifactHash}, creds)
	require.NoError(t, err)

	score, _ := rec.Score()
	assert.Equal(t, 87, score) // (60 + 1) / 70
	assert.Equal(t, []string{"malicious", "suspicious", "peexe", "overlay", "trojan.eicar/test"}, rec.Tags)
	assert.Equal(t, 70, rec.Data["total_engines"])
	assert.Equal(t, "Win32 EXE", rec.Data["file_type"])
	assert.Equal(t, []string{"a.exe", "b.exe", "c.exe", "d.exe", "e.exe"}, rec.Data["names"])
	assert.Equal(t, "trojan.eicar/test", rec.Data["threat_label"])
	assert.NotContains(t, rec.Data, "registrar")

	req := f.Last()
	assert.Equal(t, "https://www.virustotal.com/api/v3/files/44d88612fea8a8f36de82e1278abb02f", req.URL)
	assert.Equal(t, "vt-key", req.Header.Get("x-apikey"))
}

func TestEnrich_DomainTruncatesWhois(t *testing.T) {
	whois := strings.Repeat("w", 800)
	body := `{"data":{"attributes":{"last_analysis_stats":{"harmless":80},
		"registrar":"Example Registrar","creation_date":800000000,"whois":"` + whois + `"}}}`

	rec, err := New(fetchtest.New(fetchtest.JSON(200, body))).
		Enrich(context.Background(), domain.Artifact{Value: "example.com", Type: domain.ArtifactDomain}, creds)
	require.NoError(t, err)

	assert.Len(t, rec.Data["whois"], 500)
	assert.Equal(t, "Example Registrar", rec.Data["registrar"])
	score, ok := rec.Score()
	assert.True(t, ok)
	assert.Zero(t, score)
	assert.Empty(t, rec.Tags)
}

func TestEnrich_IPAttributes(t *testing.T) {
	body := `{"data":{"attributes":{"last_analysis_stats":{},"country":"US","as_owner":"GOOGLE","network":"8.8.8.0/24"}}}`
	f := fetchtest.New(fetchtest.JSON(200, body))

	rec, err := New(f).Enrich(context.Background(), domain.Artifact{Value: "8.8.8.8", Type: domain.ArtifactIP}, creds)
	require.NoError(t, err)

	assert.Equal(t, "https://www.virustotal.com/api/v3/ip_addresses/8.8.8.8", f.Last().URL)
	assert.Equal(t, "GOOGLE", rec.Data["as_owner"])
	assert.Equal(t, 0, rec.Data["total_engines"])
	score, _ := rec.Score()
	assert.Zero(t, score)
}

func TestEnrich_URLUsesBase64ID(t *testing.T) {
	f := fetchtest.New(fetchtest.JSON(200, `{"data":{"attributes":{}}}`))

	_, err := New(f).Enrich(context.Background(), domain.Artifact{Value: "http://example.com/", Type: domain.ArtifactURL}, creds)
	require.NoError(t, err)

	assert.Equal(t, "https://www.virustotal.com/api/v3/urls/aHR0cDovL2V4YW1wbGUuY29tLw", f.Last().URL)
}

func TestEnrich_UnknownTypeDegradesToFiles(t *testing.T) {
	f := fetchtest.New(fetchtest.JSON(404, `{"error":{"code":"NotFoundError"}}`))

	rec, err := New(f).Enrich(context.Background(), domain.Artifact{Value: "abc", Type: domain.ArtifactType("ssdeep")}, creds)
	require.NoError(t, err)

	assert.Equal(t, "https://www.virustotal.com/api/v3/files/abc", f.Last().URL)
	assert.False(t, rec.Found())
	assert.Nil(t, rec.RiskScore)
}

func TestEnrich_QuotaExceededIsTransient(t *testing.T) {
	_, err := New(fetchtest.New(fetchtest.JSON(429, `{"error":{"code":"QuotaExceededError"}}`))).
		Enrich(context.Background(), domain.Artifact{Value: "abc", Type: domain.ArtifactHash}, creds)
	assert.True(t, domain.IsTransient(err))
}

func TestEnrich_WrongKeyIsPermanent(t *testing.T) {
	_, err := New(fetchtest.New(fetchtest.JSON(401, `{"error":{"code":"WrongCredentialsError"}}`))).
		Enrich(context.Background(), domain.Artifact{Value: "abc", Type: domain.ArtifactHash}, creds)
	assert.True(t, domain.IsPermanent(err))
}
