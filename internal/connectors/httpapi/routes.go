package httpapi

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
)

// Route is the request shape used for one artifact type.
type Route struct {
	// Segment is the provider's name for the type in the request, e.g.
	// "IPv4" or "ip_addresses". Its use is connector-specific.
	Segment string
	// Path builds the request path from the raw artifact value.
	Path func(value string) string
	// FormField, when set, sends the value as this field of a form POST.
	FormField string
}

// Routes maps artifact types to request shapes for one provider.
type Routes struct {
	// ByType holds the supported types.
	ByType map[domain.ArtifactType]Route
	// Fallback is used for a type without a route. Empty means such types
	// are rejected as a permanent failure.
	Fallback domain.ArtifactType
}

// Resolve returns the route for t, degrading to Fallback when t has none.
func (r Routes) Resolve(provider string, t domain.ArtifactType) (Route, error) {
	if route, ok := r.ByType[t]; ok {
		return route, nil
	}
	if r.Fallback != "" {
		if route, ok := r.ByType[r.Fallback]; ok {
			return route, nil
		}
	}
	return Route{}, domain.NewPermanent(provider, 0, "",
		fmt.Errorf("%w: %s does not accept %q", domain.ErrUnsupportedType, provider, t))
}

// Types lists the supported artifact types in canonical order.
func (r Routes) Types() []domain.ArtifactType {
	out := make([]domain.ArtifactType, 0, len(r.ByType))
	for _, t := range domain.AllArtifactTypes() {
		if _, ok := r.ByType[t]; ok {
			out = append(out, t)
		}
	}
	var extra []domain.ArtifactType
	for t := range r.ByType {
		if !t.IsValid() {
			extra = append(extra, t)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}
