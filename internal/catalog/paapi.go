package catalog

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/book-expert/promo-pipeline/internal/config"
	"github.com/book-expert/promo-pipeline/internal/core"
)

// Product Advertising API 5.0 constants.
const (
	paapiSearchPath   = "/paapi5/searchitems"
	paapiTarget       = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.SearchItems"
	paapiService      = "ProductAdvertisingAPI"
	paapiPartnerType  = "Associates"
	paapiEncoding     = "amz-1.0"
	paapiContentType  = "application/json; charset=utf-8"
	paapiSearchIndex  = "All"
	centsPerUnit      = 100
	maxErrorBodyBytes = 1024
)

// HTTP headers.
const (
	headerContentType     = "Content-Type"
	headerContentEncoding = "Content-Encoding"
	headerAmzTarget       = "X-Amz-Target"
)

var paapiResources = []string{
	"ItemInfo.Title",
	"ItemInfo.Classifications",
	"Offers.Listings.Price",
	"CustomerReviews.StarRating",
}

// ErrPAAPIResponse is returned when the API reports errors in its body.
var ErrPAAPIResponse = errors.New("product advertising api error")

// PAAPIClient searches the Amazon Product Advertising API.
type PAAPIClient struct {
	httpClient  *http.Client
	signer      *v4.Signer
	credentials aws.Credentials
	endpoint    string
	region      string
	marketplace string
	searchIndex string
	partnerTag  string
	keywords    string
	itemCount   int
	now         func() time.Time
}

var _ Searcher = (*PAAPIClient)(nil)

type searchItemsRequest struct {
	Keywords         string   `json:"Keywords,omitempty"`
	SearchIndex      string   `json:"SearchIndex,omitempty"`
	MinPrice         int64    `json:"MinPrice,omitempty"`
	MaxPrice         int64    `json:"MaxPrice,omitempty"`
	MinReviewsRating int      `json:"MinReviewsRating,omitempty"`
	ItemCount        int      `json:"ItemCount,omitempty"`
	PartnerTag       string   `json:"PartnerTag"`
	PartnerType      string   `json:"PartnerType"`
	Marketplace      string   `json:"Marketplace,omitempty"`
	Resources        []string `json:"Resources"`
}

type displayValue struct {
	DisplayValue string `json:"DisplayValue"`
}

type searchItem struct {
	ASIN          string `json:"ASIN"`
	DetailPageURL string `json:"DetailPageURL"`
	ItemInfo      struct {
		Title           displayValue `json:"Title"`
		Classifications struct {
			ProductGroup displayValue `json:"ProductGroup"`
		} `json:"Classifications"`
	} `json:"ItemInfo"`
	Offers struct {
		Listings []struct {
			Price struct {
				Amount float64 `json:"Amount"`
			} `json:"Price"`
		} `json:"Listings"`
	} `json:"Offers"`
	CustomerReviews struct {
		StarRating struct {
			Value float64 `json:"Value"`
		} `json:"StarRating"`
	} `json:"CustomerReviews"`
}

type searchItemsResponse struct {
	SearchResult struct {
		Items []searchItem `json:"Items"`
	} `json:"SearchResult"`
	Errors []struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
	} `json:"Errors"`
}

// NewPAAPIClient builds a client from the catalog configuration.
func NewPAAPIClient(cfg config.CatalogConfig) *PAAPIClient {
	searchIndex := cfg.PAAPI.SearchIndex
	if searchIndex == "" {
		searchIndex = paapiSearchIndex
	}

	return &PAAPIClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		signer: v4.NewSigner(),
		credentials: aws.Credentials{
			AccessKeyID:     cfg.PAAPI.AccessKey,
			SecretAccessKey: cfg.PAAPI.SecretKey,
			Source:          "promo-pipeline",
		},
		endpoint:    strings.TrimRight(cfg.PAAPI.Endpoint, "/"),
		region:      cfg.PAAPI.Region,
		marketplace: cfg.PAAPI.Marketplace,
		searchIndex: searchIndex,
		partnerTag:  cfg.PAAPI.PartnerTag,
		keywords:    cfg.Keywords,
		itemCount:   cfg.PAAPI.ItemCount,
		now:         time.Now,
	}
}

// Search runs one SearchItems request. Items come back in upstream order.
func (c *PAAPIClient) Search(ctx context.Context, filter core.Filter) ([]core.CatalogItem, error) {
	body, err := json.Marshal(c.buildRequest(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+paapiSearchPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	req.Header.Set(headerContentType, paapiContentType)
	req.Header.Set(headerContentEncoding, paapiEncoding)
	req.Header.Set(headerAmzTarget, paapiTarget)

	payloadHash := sha256.Sum256(body)

	signErr := c.signer.SignHTTP(ctx, c.credentials, req, hex.EncodeToString(payloadHash[:]), paapiService, c.region, c.now())
	if signErr != nil {
		return nil, fmt.Errorf("failed to sign search request: %w", signErr)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send search request to %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read search response: %w", readErr)
	}

	var decoded searchItemsResponse

	decodeErr := json.Unmarshal(raw, &decoded)

	if len(decoded.Errors) > 0 {
		first := decoded.Errors[0]

		return nil, fmt.Errorf("%w (%s): %s: %s", ErrPAAPIResponse, resp.Status, first.Code, first.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: non-OK status %s: %s", ErrPAAPIResponse, resp.Status, truncate(raw))
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", decodeErr)
	}

	items := make([]core.CatalogItem, 0, len(decoded.SearchResult.Items))
	for _, found := range decoded.SearchResult.Items {
		items = append(items, toCatalogItem(found, filter.Category))
	}

	return items, nil
}

func (c *PAAPIClient) buildRequest(filter core.Filter) searchItemsRequest {
	keywords := c.keywords
	if keywords == "" {
		keywords = filter.Category
	}

	return searchItemsRequest{
		Keywords:         keywords,
		SearchIndex:      c.searchIndex,
		MinPrice:         toCents(filter.MinPrice),
		MaxPrice:         toCents(filter.MaxPrice),
		MinReviewsRating: int(math.Floor(filter.MinRating)),
		ItemCount:        c.itemCount,
		PartnerTag:       c.partnerTag,
		PartnerType:      paapiPartnerType,
		Marketplace:      c.marketplace,
		Resources:        paapiResources,
	}
}

func toCatalogItem(raw searchItem, requestedCategory string) core.CatalogItem {
	category := raw.ItemInfo.Classifications.ProductGroup.DisplayValue
	if category == "" {
		category = requestedCategory
	}

	var price float64
	if len(raw.Offers.Listings) > 0 {
		price = raw.Offers.Listings[0].Price.Amount
	}

	return core.CatalogItem{
		ID:            raw.ASIN,
		Name:          raw.ItemInfo.Title.DisplayValue,
		Category:      category,
		Price:         price,
		Rating:        raw.CustomerReviews.StarRating.Value,
		AffiliateLink: raw.DetailPageURL,
	}
}

func truncate(body []byte) string {
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}

	return strings.TrimSpace(string(body))
}

// toCents converts a price to the lowest currency denomination the API expects.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * centsPerUnit))
}
