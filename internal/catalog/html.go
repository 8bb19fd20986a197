package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/book-expert/promo-pipeline/internal/config"
	"github.com/book-expert/promo-pipeline/internal/core"
)

const (
	headerUserAgent = "User-Agent"
	userAgent       = "promo-pipeline/1.0"
	attrHref        = "href"
	attrASIN        = "data-asin"
	attrItemID      = "data-id"
)

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ErrStorefrontStatus is returned when the storefront page is not served.
var ErrStorefrontStatus = errors.New("storefront returned non-OK status")

// StorefrontScraper reads catalog items from a storefront listing page.
type StorefrontScraper struct {
	httpClient *http.Client
	pageURL    string
	selectors  config.HTMLConfig
}

var _ Searcher = (*StorefrontScraper)(nil)

// NewStorefrontScraper builds a scraper from the catalog configuration.
func NewStorefrontScraper(cfg config.CatalogConfig) *StorefrontScraper {
	return &StorefrontScraper{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		pageURL:   cfg.HTML.URL,
		selectors: cfg.HTML,
	}
}

// Search fetches the listing page and filters the parsed items locally.
func (s *StorefrontScraper) Search(ctx context.Context, filter core.Filter) ([]core.CatalogItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create storefront request: %w", err)
	}

	req.Header.Set(headerUserAgent, userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch storefront %s: %w", s.pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrStorefrontStatus, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse storefront page: %w", err)
	}

	return applyFilter(filter, s.parseItems(doc, filter.Category)), nil
}

// parseItems reads every listed item. Items without a category of their own
// are taken to belong to the requested one.
func (s *StorefrontScraper) parseItems(doc *goquery.Document, requestedCategory string) []core.CatalogItem {
	var items []core.CatalogItem

	doc.Find(s.selectors.ItemSelector).Each(func(_ int, node *goquery.Selection) {
		name := selectText(node, s.selectors.NameSelector)
		if name == "" {
			return
		}

		id, _ := node.Attr(attrASIN)
		if id == "" {
			id, _ = node.Attr(attrItemID)
		}

		category := selectText(node, s.selectors.CategorySelector)
		if category == "" {
			category = requestedCategory
		}

		items = append(items, core.CatalogItem{
			ID:            strings.TrimSpace(id),
			Name:          name,
			Category:      category,
			Price:         parseNumber(selectText(node, s.selectors.PriceSelector)),
			Rating:        parseNumber(selectText(node, s.selectors.RatingSelector)),
			AffiliateLink: s.resolveLink(node),
		})
	})

	return items
}

func (s *StorefrontScraper) resolveLink(node *goquery.Selection) string {
	linkNode := node
	if s.selectors.LinkSelector != "" {
		linkNode = node.Find(s.selectors.LinkSelector).First()
	}

	href, ok := linkNode.Attr(attrHref)
	if !ok {
		return ""
	}

	base, err := url.Parse(s.pageURL)
	if err != nil {
		return href
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}

	return base.ResolveReference(ref).String()
}

func selectText(node *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}

	return strings.Join(strings.Fields(node.Find(selector).First().Text()), " ")
}

// parseNumber extracts the first decimal number from text such as "$1,299.00"
// or "4.5 out of 5 stars". Text without a number parses as zero.
func parseNumber(text string) float64 {
	match := numberPattern.FindString(strings.ReplaceAll(text, ",", ""))
	if match == "" {
		return 0
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}

	return value
}
