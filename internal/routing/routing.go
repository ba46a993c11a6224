package routing

import (
	"github.com/GriffinCanCode/beacon/internal/event"
)

// LegacyPathSuffix is appended to the fallback endpoint so the single-endpoint
// mode remains distinguishable from category-specific routes server-side.
const LegacyPathSuffix = "/api/v1/browser"

// Destination is an (endpoint, credential) pair events are delivered to.
type Destination struct {
	Endpoint   string
	Credential string
}

// Table resolves event categories to destinations. It is immutable after
// construction; configuration is not hot-reloaded.
type Table struct {
	categories map[event.Category]Destination
	fallback   Destination
}

// NewTable builds a table from per-category destinations and a legacy
// fallback pair. Entries with an empty endpoint are ignored.
func NewTable(categories map[event.Category]Destination, fallback Destination) *Table {
	t := &Table{
		categories: make(map[event.Category]Destination, len(categories)),
		fallback:   fallback,
	}
	for cat, dest := range categories {
		if dest.Endpoint == "" {
			continue
		}
		t.categories[cat] = dest
	}
	return t
}

// EndpointFor returns the delivery endpoint for a category: the
// category-specific endpoint if configured, else the fallback endpoint with
// the legacy suffix, else absence.
func (t *Table) EndpointFor(cat event.Category) (string, bool) {
	if dest, ok := t.categories[cat]; ok {
		return dest.Endpoint, true
	}
	if t.fallback.Endpoint != "" {
		return t.fallback.Endpoint + LegacyPathSuffix, true
	}
	return "", false
}

// CredentialFor returns the credential for a category: the category-specific
// credential if configured, else the fallback credential, else absence.
func (t *Table) CredentialFor(cat event.Category) (string, bool) {
	if dest, ok := t.categories[cat]; ok && dest.Credential != "" {
		return dest.Credential, true
	}
	if t.fallback.Credential != "" {
		return t.fallback.Credential, true
	}
	return "", false
}

// Resolve returns both endpoint and credential for a category. An event is
// deliverable only when the endpoint resolves; a missing credential resolves
// to the empty string.
func (t *Table) Resolve(cat event.Category) (Destination, bool) {
	endpoint, ok := t.EndpointFor(cat)
	if !ok {
		return Destination{}, false
	}
	credential, _ := t.CredentialFor(cat)
	return Destination{Endpoint: endpoint, Credential: credential}, true
}
