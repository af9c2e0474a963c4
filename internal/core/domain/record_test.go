package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampRiskScore(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{42, 42},
		{100, 100},
		{250, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampRiskScore(tt.in))
	}
}

func TestRecord_SetRiskScore(t *testing.T) {
	r := NewRecord("p", "k", ArtifactIP)

	_, ok := r.Score()
	assert.False(t, ok, "new record has no opinion")

	r.SetRiskScore(180)
	score, ok := r.Score()
	require.True(t, ok)
	assert.Equal(t, 100, score)
}

func TestRecord_AddTags(t *testing.T) {
	r := NewRecord("p", "k", ArtifactIP)

	r.AddTags("Tor", " tor ", "", "Exit-Node", "malicious")

	assert.Equal(t, []string{"tor", "exit-node", "malicious"}, r.Tags)
	assert.True(t, r.HasTag("TOR"))
	assert.False(t, r.HasTag("benign"))
}

func TestNotFoundRecord(t *testing.T) {
	r := NotFoundRecord("otx", "evil.example", ArtifactDomain, map[string]any{"pulse_count": 0})

	assert.False(t, r.Found())
	assert.Nil(t, r.RiskScore)
	assert.Empty(t, r.Tags)
	assert.Equal(t, 0, r.Data["pulse_count"])
}

func TestRecord_Found(t *testing.T) {
	r := NewRecord("p", "k", ArtifactHash)
	assert.True(t, r.Found(), "absent flag means found")

	r.Data[DataFound] = true
	assert.True(t, r.Found())

	r.Data[DataFound] = false
	assert.False(t, r.Found())
}

func TestRecord_Identity(t *testing.T) {
	a := NewRecord("threatfox", "Evil.Example ", "")
	b := NewRecord("threatfox", "evil.example", "")
	c := NewRecord("urlhaus", "evil.example", "")

	assert.Equal(t, a.Identity(), b.Identity())
	assert.NotEqual(t, a.Identity(), c.Identity())
}

func TestRecord_JSONOmitsAbsentOpinion(t *testing.T) {
	r := NotFoundRecord("virustotal", "abc", ArtifactHash, nil)

	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.NotContains(t, decoded, "risk_score")
	assert.NotContains(t, decoded, "tags")
	assert.Equal(t, map[string]any{"found": false}, decoded["data"])
	assert.Equal(t, "hash", decoded["key_type"])
}
