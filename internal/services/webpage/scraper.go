package webpage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"dcatwiz/internal/logging"
)

// Result is the distilled content of a landing page. A failed scrape keeps
// the zero structures and records the failure in Err so the pipeline can
// proceed with whatever the other steps produced.
type Result struct {
	PageURL       string         `json:"page_url"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	BodyExcerpt   string         `json:"body_excerpt"`
	DocumentLinks []DocumentLink `json:"document_links"`
	Contact       ContactHints   `json:"contact"`
	Err           string         `json:"error,omitempty"`
}

// DocumentLink is a downloadable document referenced by the page.
type DocumentLink struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// ContactHints holds address fragments found on the page.
type ContactHints struct {
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// Scraper fetches landing pages and extracts descriptive content.
type Scraper struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the scraper.
type Option func(*Scraper)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scraper) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewScraper builds a scraper with the given request timeout.
func NewScraper(timeout time.Duration, logger *slog.Logger, opts ...Option) *Scraper {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	scraper := &Scraper{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(logging.FieldComponent, "webpage"),
	}
	for _, opt := range opts {
		opt(scraper)
	}
	return scraper
}

const (
	maxPageBytes   = 4 << 20
	maxExcerptSize = 3000
)

var documentExtensions = []string{".pdf", ".xlsx", ".xls", ".csv", ".docx", ".doc", ".json", ".xml", ".zip"}

// Scrape downloads the page at rawURL and extracts title, description, a
// bounded body excerpt, document links and contact hints.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) Result {
	result := Result{PageURL: rawURL, DocumentLinks: []DocumentLink{}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.Err = fmt.Sprintf("invalid URL %q: %v", rawURL, err)
		return result
	}
	req.Header.Set("Accept", "text/html, application/xhtml+xml;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		result.Err = fmt.Sprintf("fetch %s: %v", rawURL, err)
		return result
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		result.Err = fmt.Sprintf("fetch %s: http %d", rawURL, resp.StatusCode)
		return result
	}

	root, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		result.Err = fmt.Sprintf("parse %s: %v", rawURL, err)
		return result
	}

	base := resp.Request.URL
	extract(root, base, &result)
	result.BodyExcerpt = truncate(result.BodyExcerpt, maxExcerptSize)
	s.logger.Debug("scraped landing page",
		"url", rawURL,
		"title", result.Title,
		"documents", len(result.DocumentLinks))
	return result
}

func extract(root *html.Node, base *url.URL, result *Result) {
	var bodyText strings.Builder
	seen := map[string]bool{}

	var walk func(n *html.Node, inDocSection bool)
	walk = func(n *html.Node, inDocSection bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "nav", "footer":
				return
			case "title":
				if result.Title == "" {
					result.Title = strings.TrimSpace(textContent(n))
				}
			case "meta":
				if attr(n, "name") == "description" || attr(n, "property") == "og:description" {
					if result.Description == "" {
						result.Description = strings.TrimSpace(attr(n, "content"))
					}
				}
			case "div", "section", "ul":
				class := strings.ToLower(attr(n, "class"))
				if strings.Contains(class, "document") || strings.Contains(class, "download") {
					inDocSection = true
				}
			case "a":
				href := strings.TrimSpace(attr(n, "href"))
				if href != "" {
					collectLink(href, n, base, inDocSection, seen, result)
				}
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" && bodyText.Len() < maxExcerptSize*2 {
				if bodyText.Len() > 0 {
					bodyText.WriteByte(' ')
				}
				bodyText.WriteString(text)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, inDocSection)
		}
	}
	walk(root, false)

	text := bodyText.String()
	result.BodyExcerpt = text
	hints := contactHints(text)
	if result.Contact.Email == "" {
		result.Contact.Email = hints.Email
	}
	if result.Contact.Phone == "" {
		result.Contact.Phone = hints.Phone
	}
}

// collectLink records anchors that point at documents: always inside a
// documents/downloads section, otherwise only when the path carries a known
// document extension.
func collectLink(href string, n *html.Node, base *url.URL, inDocSection bool, seen map[string]bool, result *Result) {
	if strings.HasPrefix(href, "mailto:") {
		if result.Contact.Email == "" {
			result.Contact.Email = strings.TrimPrefix(href, "mailto:")
		}
		return
	}
	if strings.HasPrefix(href, "tel:") {
		if result.Contact.Phone == "" {
			result.Contact.Phone = strings.TrimPrefix(href, "tel:")
		}
		return
	}
	ref, err := url.Parse(href)
	if err != nil {
		return
	}
	resolved := base.ResolveReference(ref)
	isDocument := inDocSection
	lowerPath := strings.ToLower(resolved.Path)
	for _, ext := range documentExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			isDocument = true
			break
		}
	}
	if !isDocument {
		return
	}
	link := resolved.String()
	if seen[link] {
		return
	}
	seen[link] = true
	label := strings.TrimSpace(textContent(n))
	if label == "" {
		label = resolved.Path[strings.LastIndex(resolved.Path, "/")+1:]
	}
	result.DocumentLinks = append(result.DocumentLinks, DocumentLink{URL: link, Label: label})
}

func contactHints(text string) ContactHints {
	hints := ContactHints{}
	for _, word := range strings.Fields(text) {
		cleaned := strings.Trim(word, ".,;:()<>")
		if hints.Email == "" && strings.Count(cleaned, "@") == 1 && strings.Contains(cleaned, ".") {
			hints.Email = cleaned
		}
		if hints.Phone == "" && strings.HasPrefix(cleaned, "+41") && len(cleaned) >= 5 {
			hints.Phone = cleaned
		}
	}
	return hints
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var builder strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			builder.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return builder.String()
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut
}
