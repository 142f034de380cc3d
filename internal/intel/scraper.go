package intel

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	gocache "github.com/patrickmn/go-cache"
)

const userAgent = "sensai/1.0"

// Scraper fetches web pages and extracts their text content via a CSS
// selector. Fetched pages are cached briefly so repeated runs against the
// same report do not rescrape.
type Scraper struct {
	client *http.Client
	cache  *gocache.Cache
}

// NewScraper returns a Scraper with a 30s request timeout and a 15 minute
// page cache.
func NewScraper() *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  gocache.New(15*time.Minute, 30*time.Minute),
	}
}

// Scrape fetches url and returns its text content filtered by cssSelector
// (empty selects the whole body). An empty result after the selector is
// applied is an error naming the source: common causes are a wrong selector
// or a page behind bot protection.
func (s *Scraper) Scrape(ctx context.Context, url, cssSelector string) ([]Document, error) {
	selector := cssSelector
	if selector == "" {
		selector = "body"
	}

	key := url + "\x00" + selector
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]Document), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: HTTP %d", url, resp.StatusCode)
	}

	page, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %s: %w", url, err)
	}

	text := strings.TrimSpace(page.Find(selector).Text())
	if text == "" {
		return nil, fmt.Errorf(
			"no content extracted from %s with selector %q: "+
				"check the selector, or the page may be behind bot protection", url, selector)
	}

	docs := []Document{{Content: text, Source: url}}
	s.cache.Set(key, docs, gocache.DefaultExpiration)
	return docs, nil
}
