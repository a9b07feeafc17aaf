package research

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	searchTimeout    = 30 * time.Second
	defaultResultCap = 8
	searchUserAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// searchResult is one hit returned by a search provider.
type searchResult struct {
	Title       string
	URL         string
	Description string
}

// searchProvider abstracts a web search backend, grounded on
// internal/tools/web_search.go's SearchProvider interface.
type searchProvider interface {
	Name() string
	Search(ctx context.Context, query string, count int) ([]searchResult, error)
}

var ddgLinkRe = regexp.MustCompile(`<a[^>]*class="[^"]*result__a[^"]*"[^>]*href="([^"]+)"[^>]*>([\s\S]*?)</a>`)
var ddgSnippetRe = regexp.MustCompile(`<a class="result__snippet[^"]*".*?>([\s\S]*?)</a>`)
var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// duckDuckGoProvider scrapes html.duckduckgo.com/html, the HTML-only
// endpoint that requires no API key, grounded on
// internal/tools/web_search_ddg.go.
type duckDuckGoProvider struct {
	client *http.Client
}

func newDuckDuckGoProvider() *duckDuckGoProvider {
	return &duckDuckGoProvider{client: &http.Client{Timeout: searchTimeout}}
}

func (p *duckDuckGoProvider) Name() string { return "duckduckgo" }

func (p *duckDuckGoProvider) Search(ctx context.Context, query string, count int) ([]searchResult, error) {
	searchURL := fmt.Sprintf("https://html.duckduckgo.com/html/?q=%s", url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return extractDDGResults(string(body), count), nil
}

func extractDDGResults(html string, count int) []searchResult {
	linkMatches := ddgLinkRe.FindAllStringSubmatch(html, count+5)
	if len(linkMatches) == 0 {
		return nil
	}
	snippetMatches := ddgSnippetRe.FindAllStringSubmatch(html, count+5)

	var results []searchResult
	for i := 0; i < len(linkMatches) && i < count; i++ {
		rawURL := linkMatches[i][1]
		title := strings.TrimSpace(htmlTagRe.ReplaceAllString(linkMatches[i][2], ""))

		if strings.Contains(rawURL, "uddg=") {
			if u, err := url.QueryUnescape(rawURL); err == nil {
				if idx := strings.Index(u, "uddg="); idx != -1 {
					extracted := u[idx+5:]
					if amp := strings.Index(extracted, "&"); amp != -1 {
						extracted = extracted[:amp]
					}
					rawURL = extracted
				}
			}
		}

		desc := ""
		if i < len(snippetMatches) {
			desc = strings.TrimSpace(htmlTagRe.ReplaceAllString(snippetMatches[i][1], ""))
		}
		results = append(results, searchResult{Title: title, URL: rawURL, Description: desc})
	}
	return results
}

// braveProvider queries the Brave Search API, grounded on
// internal/tools/web_search.go's Brave-first provider ordering. Used
// ahead of DuckDuckGo whenever an API key is configured.
type braveProvider struct {
	apiKey string
	client *http.Client
}

func newBraveProvider(apiKey string) *braveProvider {
	return &braveProvider{apiKey: apiKey, client: &http.Client{Timeout: searchTimeout}}
}

func (p *braveProvider) Name() string { return "brave" }

func (p *braveProvider) Search(ctx context.Context, query string, count int) ([]searchResult, error) {
	endpoint := fmt.Sprintf("https://api.search.brave.com/res/v1/web/search?q=%s&count=%d", url.QueryEscape(query), count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave search returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]searchResult, 0, len(parsed.Web.Results))
	for i, r := range parsed.Web.Results {
		if i >= count {
			break
		}
		results = append(results, searchResult{Title: r.Title, URL: r.URL, Description: r.Description})
	}
	return results, nil
}

func formatSearchResults(query string, results []searchResult, provider string) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for: %s", query)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for: %s (via %s)\n\n", query, provider)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Description != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Description)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
