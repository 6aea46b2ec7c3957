package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/askweb/internal/fetch"
	"github.com/ppiankov/askweb/internal/model"
	"go.uber.org/zap"
)

// DuckDuckGoEndpoint is the HTML lite search page
const DuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo searches the DuckDuckGo HTML endpoint and scrapes its result list
type DuckDuckGo struct {
	fetcher  *fetch.Fetcher
	endpoint string
	region   string
	logger   *zap.Logger
}

// NewDuckDuckGo creates a searcher. Empty endpoint and region fall back to
// the public endpoint and "wt-wt" (no region).
func NewDuckDuckGo(fetcher *fetch.Fetcher, cfg model.SearchConfig, logger *zap.Logger) *DuckDuckGo {
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DuckDuckGoEndpoint
	}
	region := cfg.Region
	if region == "" {
		region = "wt-wt"
	}
	return &DuckDuckGo{
		fetcher:  fetcher,
		endpoint: endpoint,
		region:   region,
		logger:   logger,
	}
}

// Search posts the query and returns at most max results in page order
func (d *DuckDuckGo) Search(ctx context.Context, query string, max int) ([]model.WebResult, error) {
	if max <= 0 {
		max = DefaultMaxResults
	}

	form := url.Values{"q": {query}, "kl": {d.region}, "df": {""}}
	result, err := d.fetcher.DoWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Referer", "https://html.duckduckgo.com/")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search: %w", err)
	}

	results, err := ParseDuckDuckGoHTML(result.Body, max)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("web search complete", zap.String("query", query), zap.Int("results", len(results)))
	return results, nil
}

// ParseDuckDuckGoHTML extracts up to max organic results from a result page
func ParseDuckDuckGoHTML(data []byte, max int) ([]model.WebResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}

	var results []model.WebResult
	doc.Find(".result, .web-result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}

		link := s.Find("a.result__a, .result__title a").First()
		title := strings.TrimSpace(link.Text())
		href, exists := link.Attr("href")
		if !exists || title == "" {
			return true
		}

		href = unwrapURL(href)
		if href == "" || isInternal(href) {
			return true
		}

		snippet := strings.TrimSpace(s.Find(".result__snippet, .result__body").First().Text())
		if snippet == "" {
			snippet = "No snippet"
		}

		results = append(results, model.WebResult{
			Title:   title,
			URL:     href,
			Snippet: snippet,
		})
		return max <= 0 || len(results) < max
	})

	return results, nil
}

// unwrapURL resolves DuckDuckGo's "/l/?uddg=<target>" redirect links
func unwrapURL(href string) string {
	if strings.Contains(href, "duckduckgo.com/l/") || strings.Contains(href, "uddg=") {
		if u, err := url.Parse(href); err == nil {
			if target := u.Query().Get("uddg"); target != "" {
				return target
			}
		}
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return ""
}

func isInternal(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return true
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host == "duckduckgo.com" || strings.HasSuffix(host, ".duckduckgo.com")
}
