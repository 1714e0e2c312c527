package harvest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/sandevgo/docqa/internal/config"
	"github.com/sandevgo/docqa/pkg/log"
	"golang.org/x/net/html"
)

const unnamedPDF = "Unnamed PDF"

// Link is a PDF reference found on a listing page.
type Link struct {
	Title string
	URL   string
}

// Harvester walks a paginated listing and collects PDF links.
type Harvester struct {
	client    *http.Client
	userAgent string
	nextID    string
	maxPages  int
}

func NewHarvester(cfg *config.HarvestConfig) *Harvester {
	return &Harvester{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		nextID:    cfg.NextID,
		maxPages:  cfg.MaxPages,
	}
}

// Harvest returns the PDF links of pageURL and every page reachable through
// its "next" control, deduplicated and in discovery order.
func (h *Harvester) Harvest(ctx context.Context, pageURL string) ([]Link, error) {
	logger := log.FromCtx(ctx)

	var (
		links   []Link
		seen    = make(map[string]bool)
		visited = make(map[string]bool)
		current = pageURL
	)

	for page := 0; h.maxPages <= 0 || page < h.maxPages; page++ {
		visited[current] = true

		found, next, err := h.scan(ctx, current)
		if err != nil {
			if page == 0 {
				return nil, err
			}
			logger.Warn().Err(err).Str("url", current).Msg("stopping pagination")
			break
		}

		for _, l := range found {
			if seen[l.URL] {
				continue
			}
			seen[l.URL] = true
			links = append(links, l)
			logger.Debug().Str("title", l.Title).Str("url", l.URL).Msg("found pdf")
		}

		if next == "" || visited[next] {
			break
		}
		current = next
	}

	logger.Info().Int("count", len(links)).Msg("harvest complete")
	return links, nil
}

func (h *Harvester) scan(ctx context.Context, pageURL string) ([]Link, string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse page url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch page %s: http %d", pageURL, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse page: %w", err)
	}

	links, next := extract(doc, base, h.nextID)
	return links, next, nil
}

// extract finds PDF anchors and the href of an enabled "next" control.
func extract(doc *html.Node, base *url.URL, nextID string) ([]Link, string) {
	var (
		links []Link
		next  string
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "a" {
				if href := attr(n, "href"); href != "" {
					if u, ok := resolve(base, href); ok && isPDFPath(u) {
						links = append(links, Link{Title: linkText(n), URL: u.String()})
					}
				}
			}
			if next == "" && isNextControl(n, nextID) && !hasClass(n, "disabled") {
				if href := nextHref(n); href != "" {
					if u, ok := resolve(base, href); ok {
						next = u.String()
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, next
}

func isNextControl(n *html.Node, nextID string) bool {
	if nextID != "" && attr(n, "id") == nextID {
		return true
	}
	return n.Data == "a" && slices.Contains(strings.Fields(strings.ToLower(attr(n, "rel"))), "next")
}

// nextHref reads the control's own href or that of its first anchor.
func nextHref(n *html.Node) string {
	if n.Data == "a" {
		return attr(n, "href")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := nextHref(c); href != "" {
			return href
		}
	}
	return ""
}

func resolve(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	return base.ResolveReference(ref), true
}

func isPDFPath(u *url.URL) bool {
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

func linkText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	text := strings.Join(strings.Fields(b.String()), " ")
	if text == "" {
		return unnamedPDF
	}
	return text
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}
