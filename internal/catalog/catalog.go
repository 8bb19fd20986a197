// Package catalog queries a product catalog for candidate items.
//
// Backends report errors; Query turns every backend error into an empty
// result, so the pipeline treats a failed query exactly like an empty one.
package catalog

import (
	"context"
	"strings"

	"github.com/book-expert/promo-pipeline/internal/core"
)

// Searcher is a catalog backend.
type Searcher interface {
	Search(ctx context.Context, filter core.Filter) ([]core.CatalogItem, error)
}

// Query implements core.CatalogQuery on top of a Searcher and fails closed.
type Query struct {
	searcher Searcher
	log      core.Logger
}

var _ core.CatalogQuery = (*Query)(nil)

// New wraps a backend.
func New(searcher Searcher, log core.Logger) *Query {
	return &Query{
		searcher: searcher,
		log:      log,
	}
}

// Search returns the backend's items in upstream order, or an empty slice if
// the backend fails for any reason.
func (q *Query) Search(ctx context.Context, filter core.Filter) []core.CatalogItem {
	items, err := q.searcher.Search(ctx, filter)
	if err != nil {
		q.log.Error("Catalog query for category %q failed, continuing with no items: %v", filter.Category, err)

		return []core.CatalogItem{}
	}

	if items == nil {
		return []core.CatalogItem{}
	}

	return items
}

// applyFilter keeps the items matching filter, preserving order. Used by the
// backends that cannot filter upstream.
func applyFilter(filter core.Filter, items []core.CatalogItem) []core.CatalogItem {
	kept := make([]core.CatalogItem, 0, len(items))

	for _, item := range items {
		if matches(filter, item) {
			kept = append(kept, item)
		}
	}

	return kept
}

func matches(filter core.Filter, item core.CatalogItem) bool {
	if filter.Category != "" && !strings.EqualFold(strings.TrimSpace(item.Category), strings.TrimSpace(filter.Category)) {
		return false
	}

	if item.Price < filter.MinPrice {
		return false
	}

	if filter.MaxPrice > 0 && item.Price > filter.MaxPrice {
		return false
	}

	return item.Rating >= filter.MinRating
}
