package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/book-expert/promo-pipeline/internal/core"
	"gopkg.in/yaml.v3"
)

// FixtureSource serves catalog items from a YAML file.
//
//	items:
//	  - id: B000WIDGET
//	    name: Widget
//	    category: electronics
//	    price: 99
//	    rating: 4.5
//	    affiliate_link: https://example.com/widget?tag=promo-21
type FixtureSource struct {
	path string
}

var _ Searcher = (*FixtureSource)(nil)

type fixtureFile struct {
	Items []fixtureItem `yaml:"items"`
}

type fixtureItem struct {
	ID            string  `yaml:"id"`
	Name          string  `yaml:"name"`
	Category      string  `yaml:"category"`
	Price         float64 `yaml:"price"`
	Rating        float64 `yaml:"rating"`
	AffiliateLink string  `yaml:"affiliate_link"`
}

// NewFixtureSource reads items from path on every search.
func NewFixtureSource(path string) *FixtureSource {
	return &FixtureSource{path: path}
}

// Search loads the fixture and filters it locally.
func (f *FixtureSource) Search(_ context.Context, filter core.Filter) ([]core.CatalogItem, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog fixture %s: %w", f.path, err)
	}

	var fixture fixtureFile

	err = yaml.Unmarshal(raw, &fixture)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog fixture %s: %w", f.path, err)
	}

	items := make([]core.CatalogItem, 0, len(fixture.Items))
	for _, item := range fixture.Items {
		items = append(items, core.CatalogItem(item))
	}

	return applyFilter(filter, items), nil
}
