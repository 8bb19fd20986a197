package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/book-expert/promo-pipeline/internal/catalog"
	"github.com/book-expert/promo-pipeline/internal/config"
	"github.com/book-expert/promo-pipeline/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storefrontHTML = `<html><body>
<ul class="results">
  <li class="product" data-asin="B0HEADPHONE">
    <a class="title" href="/dp/B0HEADPHONE?tag=promo-21"><span class="name">Noise  Cancelling
      Headphones</span></a>
    <span class="cat">Electronics</span>
    <span class="price">$1,299.00</span>
    <span class="stars">4.7 out of 5 stars</span>
  </li>
  <li class="product" data-asin="B0NONAME">
    <a class="title" href="/dp/B0NONAME"><span class="name">  </span></a>
    <span class="cat">Electronics</span>
    <span class="price">$10.00</span>
    <span class="stars">5.0 out of 5 stars</span>
  </li>
  <li class="product" data-id="local-7">
    <a class="title" href="https://shop.example.com/usb-hub"><span class="name">USB Hub</span></a>
    <span class="cat">electronics</span>
    <span class="price">$25.50</span>
    <span class="stars">4.2 out of 5 stars</span>
  </li>
  <li class="product" data-asin="B0LOWRATED">
    <a class="title" href="/dp/B0LOWRATED"><span class="name">Cheap Mouse</span></a>
    <span class="cat">Electronics</span>
    <span class="price">$8.00</span>
    <span class="stars">2.9 out of 5 stars</span>
  </li>
</ul>
</body></html>`

func storefrontConfig(pageURL string) config.CatalogConfig {
	return config.CatalogConfig{
		Backend:        config.BackendHTML,
		Category:       "electronics",
		TimeoutSeconds: 5,
		HTML: config.HTMLConfig{
			URL:              pageURL,
			ItemSelector:     "li.product",
			NameSelector:     ".name",
			CategorySelector: ".cat",
			PriceSelector:    ".price",
			RatingSelector:   ".stars",
			LinkSelector:     "a.title",
		},
	}
}

func TestStorefrontScraper_ParsesAndFilters(t *testing.T) {
	t.Parallel()

	// 1. Setup
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(storefrontHTML))
	}))
	defer server.Close()

	scraper := catalog.NewStorefrontScraper(storefrontConfig(server.URL + "/s?k=electronics"))

	// 2. Execute
	items, err := scraper.Search(context.Background(), core.Filter{Category: "electronics", MinPrice: 0, MaxPrice: 0, MinRating: 4})

	// 3. Assert
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, core.CatalogItem{
		ID:            "B0HEADPHONE",
		Name:          "Noise Cancelling Headphones",
		Category:      "Electronics",
		Price:         1299,
		Rating:        4.7,
		AffiliateLink: server.URL + "/dp/B0HEADPHONE?tag=promo-21",
	}, items[0])

	assert.Equal(t, "local-7", items[1].ID)
	assert.Equal(t, "USB Hub", items[1].Name)
	assert.InDelta(t, 25.5, items[1].Price, 0.001)
	assert.Equal(t, "https://shop.example.com/usb-hub", items[1].AffiliateLink)
}

func TestStorefrontScraper_NonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	scraper := catalog.NewStorefrontScraper(storefrontConfig(server.URL))

	_, err := scraper.Search(context.Background(), core.Filter{})

	require.ErrorIs(t, err, catalog.ErrStorefrontStatus)
}

func TestStorefrontScraper_WithoutCategorySelector(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(storefrontHTML))
	}))
	defer server.Close()

	cfg := storefrontConfig(server.URL)
	cfg.HTML.CategorySelector = ""

	items, err := catalog.NewStorefrontScraper(cfg).Search(context.Background(), core.Filter{Category: "electronics", MinPrice: 0, MaxPrice: 0, MinRating: 4})

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "electronics", items[0].Category)
	assert.Equal(t, "electronics", items[1].Category)
}

func TestStorefrontScraper_CategorySelectorMatchesNothing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(storefrontHTML))
	}))
	defer server.Close()

	cfg := storefrontConfig(server.URL)
	cfg.HTML.CategorySelector = ".department"

	items, err := catalog.NewStorefrontScraper(cfg).Search(context.Background(), core.Filter{Category: "Electronics", MinPrice: 0, MaxPrice: 0, MinRating: 4})

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Electronics", items[0].Category)
}
