package domain

import "strings"

// Risk score bounds. Every score stored on a Record lies in this range.
const (
	MinRiskScore = 0
	MaxRiskScore = 100
)

// Well-known keys in Record.Data.
const (
	// DataFound is false when the provider reported no knowledge of the key.
	DataFound = "found"

	// DataIncomplete is true when a chained lookup failed part-way.
	DataIncomplete = "incomplete"
)

// Record is the normalised output unit shared by all connectors.
//
// A nil RiskScore means "no opinion", never zero risk. Tags are open-world:
// a present tag asserts a fact, an absent one asserts nothing.
type Record struct {
	// Provider is the connector that produced the record.
	// Provider and Key together form the natural identity of a record.
	Provider string `json:"provider"`

	// Key is the artifact value (agent mode) or the raw IOC value (data mode).
	Key string `json:"key"`

	// KeyType is always set for agent records and optional for feed records.
	KeyType ArtifactType `json:"key_type,omitempty"`

	// RiskScore is an indicative severity in [0,100].
	RiskScore *int `json:"risk_score,omitempty"`

	// Tags are short lowercase classification facts.
	Tags []string `json:"tags,omitempty"`

	// Data holds provider-specific attributes behind the score and tags.
	// Never nil.
	Data map[string]any `json:"data"`
}

// NewRecord returns a record with an initialised Data map.
func NewRecord(provider, key string, keyType ArtifactType) Record {
	return Record{
		Provider: provider,
		Key:      key,
		KeyType:  keyType,
		Data:     make(map[string]any),
	}
}

// NotFoundRecord returns the low-information record for an artifact the
// provider has no knowledge of. Extra attributes are merged into Data.
func NotFoundRecord(provider, key string, keyType ArtifactType, extra map[string]any) Record {
	r := NewRecord(provider, key, keyType)
	for k, v := range extra {
		r.Data[k] = v
	}
	r.Data[DataFound] = false
	return r
}

// ClampRiskScore bounds a raw score to [MinRiskScore, MaxRiskScore].
func ClampRiskScore(score int) int {
	if score < MinRiskScore {
		return MinRiskScore
	}
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	return score
}

// SetRiskScore stores a clamped copy of score.
func (r *Record) SetRiskScore(score int) {
	s := ClampRiskScore(score)
	r.RiskScore = &s
}

// Score returns the risk score and whether one is present.
func (r Record) Score() (int, bool) {
	if r.RiskScore == nil {
		return 0, false
	}
	return *r.RiskScore, true
}

// AddTags appends normalised tags, skipping empties and duplicates.
func (r *Record) AddTags(tags ...string) {
	for _, tag := range tags {
		tag = NormalizeTag(tag)
		if tag == "" || r.HasTag(tag) {
			continue
		}
		r.Tags = append(r.Tags, tag)
	}
}

// HasTag reports whether the record carries tag.
func (r Record) HasTag(tag string) bool {
	tag = NormalizeTag(tag)
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Found returns false only when the record explicitly says the provider
// had no knowledge of the key.
func (r Record) Found() bool {
	found, ok := r.Data[DataFound].(bool)
	return !ok || found
}

// Incomplete reports whether a chained lookup failed part-way.
func (r Record) Incomplete() bool {
	v, _ := r.Data[DataIncomplete].(bool)
	return v
}

// Identity returns the composite provider/key identity used for dedup.
// The key is normalised, so case or whitespace variants collapse.
func (r Record) Identity() string {
	return r.Provider + "\x00" + NormalizeKey(r.Key)
}

// NormalizeTag lowercases and trims a tag.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// NormalizeKey folds case and surrounding whitespace of an IOC value.
// Connectors never apply this; it exists for downstream comparison.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
