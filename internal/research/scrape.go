package research

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const (
	scrapeTimeout    = 30 * time.Second
	scrapeMaxChars   = 20000
	scrapeWaitStable = 2 * time.Second
)

// webScrapeURL renders url in a headless browser and returns its
// visible text, truncated to scrapeMaxChars. This is the first use of
// the teacher's go-rod dependency: web_search's DuckDuckGo/Brave
// providers only need plain HTTP, but an arbitrary research target may
// be JS-rendered, so scraping needs an actual browser rather than a
// raw GET (internal/tools/web_fetch.go's doFetch is plain-HTTP and
// insufficient here).
func webScrapeURL(ctx context.Context, rawURL string) (string, error) {
	if err := validateScrapeURL(rawURL); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, scrapeTimeout)
	defer cancel()

	browser := rod.New().Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("launch browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: rawURL})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait for page load: %w", err)
	}
	_ = page.WaitStable(scrapeWaitStable)

	body, err := page.Element("body")
	if err != nil {
		return "", fmt.Errorf("locate body: %w", err)
	}
	text, err := body.Text()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}

	text = strings.TrimSpace(text)
	if len(text) > scrapeMaxChars {
		text = text[:scrapeMaxChars] + "...(truncated)"
	}
	if text == "" {
		return "", fmt.Errorf("page produced no visible text")
	}
	return text, nil
}

// validateScrapeURL rejects non-http(s) schemes and loopback/private
// targets, the same shape of guard internal/tools/web_fetch.go applies
// before fetching (its checkSSRF call).
func validateScrapeURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("only http and https urls are supported")
	}
	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("missing hostname in url")
	}
	if host == "localhost" {
		return fmt.Errorf("refusing to scrape localhost")
	}
	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()) {
		return fmt.Errorf("refusing to scrape a private/loopback address")
	}
	return nil
}
