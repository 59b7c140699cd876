// Package catalog provides clients for querying bibliographic union catalogs.
//
// A catalog answers two questions: look a record up by identifier (ISBN or
// ISSN) and search it by title text. The deduplication matcher consumes both
// to find counterpart entries for a base record.
//
// Example usage:
//
//	client := catalog.NewJSONClient(catalog.JSONClientConfig{
//		Name:    "k10plus",
//		BaseURL: "https://catalog.example.org",
//	})
//	entries, err := client.Lookup(ctx, "978-3-16-148410-0")
package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/bibfuse/reconciliation-service/internal/domain"
)

// SearchQuery describes a free-text catalog search.
type SearchQuery struct {
	// Title is the title text to search for (required).
	Title string

	// Author optionally narrows the search to a contributor name.
	Author string

	// MaxResults limits the number of entries returned. A value of 0 uses
	// the catalog's default limit.
	MaxResults int
}

// Catalog is implemented by every union catalog client.
type Catalog interface {
	// Lookup returns the entries carrying the given identifier (ISBN or
	// ISSN). An unknown identifier yields an empty slice, not an error.
	Lookup(ctx context.Context, identifier string) ([]domain.CatalogEntry, error)

	// Search returns entries matching the query by title text.
	Search(ctx context.Context, query SearchQuery) ([]domain.CatalogEntry, error)

	// Name returns the catalog identifier used in provenance and metrics
	// (e.g. "dnb", "swb", "k10plus").
	Name() string

	// IsEnabled reports whether the catalog is available for queries.
	IsEnabled() bool
}

// Registry holds the configured catalogs. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	catalogs map[string]Catalog
}

// NewRegistry creates an empty catalog registry.
func NewRegistry() *Registry {
	return &Registry{catalogs: make(map[string]Catalog)}
}

// Register adds a catalog, replacing any previous one with the same name.
func (r *Registry) Register(c Catalog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalogs[c.Name()] = c
}

// Get returns the catalog with the given name and whether it is registered.
func (r *Registry) Get(name string) (Catalog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.catalogs[name]
	return c, ok
}

// Enabled returns the enabled catalogs sorted by name for a stable order.
func (r *Registry) Enabled() []Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Catalog
	for _, c := range r.catalogs {
		if c.IsEnabled() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
