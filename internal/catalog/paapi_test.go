package catalog_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/book-expert/promo-pipeline/internal/catalog"
	"github.com/book-expert/promo-pipeline/internal/config"
	"github.com/book-expert/promo-pipeline/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchItemsResponse = `{
  "SearchResult": {
    "Items": [
      {
        "ASIN": "B0SPEAKER1",
        "DetailPageURL": "https://www.amazon.com/dp/B0SPEAKER1?tag=promo-21",
        "ItemInfo": {
          "Title": {"DisplayValue": "Bluetooth Speaker"},
          "Classifications": {"ProductGroup": {"DisplayValue": "Electronics"}}
        },
        "Offers": {"Listings": [{"Price": {"Amount": 49.99}}]},
        "CustomerReviews": {"StarRating": {"Value": 4.6}}
      },
      {
        "ASIN": "B0NOOFFER2",
        "DetailPageURL": "https://www.amazon.com/dp/B0NOOFFER2?tag=promo-21",
        "ItemInfo": {"Title": {"DisplayValue": "Unlisted Gadget"}}
      }
    ]
  }
}`

func paapiConfig(endpoint string) config.CatalogConfig {
	return config.CatalogConfig{
		Backend:        config.BackendPAAPI,
		Category:       "electronics",
		Keywords:       "",
		MinPrice:       10,
		MaxPrice:       150.5,
		MinRating:      4.5,
		TimeoutSeconds: 5,
		PAAPI: config.PAAPIConfig{
			Endpoint:    endpoint,
			Region:      "us-east-1",
			Marketplace: "www.amazon.com",
			SearchIndex: "Electronics",
			AccessKey:   "AKIDEXAMPLE",
			SecretKey:   "secret",
			PartnerTag:  "promo-21",
			ItemCount:   5,
		},
	}
}

func TestPAAPIClient_SignsAndMapsItems(t *testing.T) {
	t.Parallel()

	// 1. Setup
	var (
		gotPath    string
		gotTarget  string
		gotAuth    string
		gotRequest map[string]any
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTarget = r.Header.Get("X-Amz-Target")
		gotAuth = r.Header.Get("Authorization")

		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotRequest)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchItemsResponse))
	}))
	defer server.Close()

	cfg := paapiConfig(server.URL)
	client := catalog.NewPAAPIClient(cfg)

	// 2. Execute
	items, err := client.Search(context.Background(), cfg.Filter())

	// 3. Assert request
	require.NoError(t, err)
	assert.Equal(t, "/paapi5/searchitems", gotPath)
	assert.Equal(t, "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.SearchItems", gotTarget)
	assert.True(t, strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/"), gotAuth)
	assert.Contains(t, gotAuth, "/us-east-1/ProductAdvertisingAPI/aws4_request")

	assert.Equal(t, "electronics", gotRequest["Keywords"])
	assert.Equal(t, "Electronics", gotRequest["SearchIndex"])
	assert.InDelta(t, 1000, gotRequest["MinPrice"], 0)
	assert.InDelta(t, 15050, gotRequest["MaxPrice"], 0)
	assert.InDelta(t, 4, gotRequest["MinReviewsRating"], 0)
	assert.InDelta(t, 5, gotRequest["ItemCount"], 0)
	assert.Equal(t, "promo-21", gotRequest["PartnerTag"])
	assert.Equal(t, "Associates", gotRequest["PartnerType"])

	// 4. Assert mapping
	require.Len(t, items, 2)
	assert.Equal(t, core.CatalogItem{
		ID:            "B0SPEAKER1",
		Name:          "Bluetooth Speaker",
		Category:      "Electronics",
		Price:         49.99,
		Rating:        4.6,
		AffiliateLink: "https://www.amazon.com/dp/B0SPEAKER1?tag=promo-21",
	}, items[0])

	assert.Equal(t, "B0NOOFFER2", items[1].ID)
	assert.Equal(t, "electronics", items[1].Category)
	assert.Zero(t, items[1].Price)
	assert.Zero(t, items[1].Rating)
}

func TestPAAPIClient_ErrorBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"Errors":[{"Code":"InvalidSignature","Message":"The request has not been correctly signed."}]}`))
	}))
	defer server.Close()

	cfg := paapiConfig(server.URL)

	_, err := catalog.NewPAAPIClient(cfg).Search(context.Background(), cfg.Filter())

	require.ErrorIs(t, err, catalog.ErrPAAPIResponse)
	assert.Contains(t, err.Error(), "InvalidSignature")
}

func TestPAAPIClient_NonOKWithoutErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("gateway down"))
	}))
	defer server.Close()

	cfg := paapiConfig(server.URL)

	_, err := catalog.NewPAAPIClient(cfg).Search(context.Background(), cfg.Filter())

	require.ErrorIs(t, err, catalog.ErrPAAPIResponse)
	assert.Contains(t, err.Error(), "gateway down")
}

func TestPAAPIClient_FailedQueryIsEmptyThroughQuery(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := paapiConfig(server.URL)
	log := &recordingLogger{}

	items := catalog.New(catalog.NewPAAPIClient(cfg), log).Search(context.Background(), cfg.Filter())

	assert.Empty(t, items)
	assert.Len(t, log.errors, 1)
}
