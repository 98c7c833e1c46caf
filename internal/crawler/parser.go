package crawler

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/tldcrawl/internal/model"
)

// Parser extracts outbound links and descriptive metadata from HTML.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. More maintainable than complex regex patterns
//
// A Parser holds no state, so one value is shared by every worker.
type Parser struct{}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// pageWalk accumulates results during one DOM traversal.
type pageWalk struct {
	base  *url.URL
	seen  map[string]struct{}
	links []string
	meta  model.PageMetadata
	// titleSet keeps the first HTML <title>; SVG titles are ignored.
	titleSet bool
}

// Extract parses content and returns the absolute http(s) links it contains,
// in document order without duplicates, plus the page metadata.
// An unparseable base URL or document yields empty results.
func (p *Parser) Extract(content []byte, baseURL string) ([]string, model.PageMetadata) {
	base, err := url.Parse(baseURL)
	if err != nil || !base.IsAbs() {
		return []string{}, model.PageMetadata{}
	}

	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return []string{}, model.PageMetadata{}
	}

	w := &pageWalk{
		base:  base,
		seen:  make(map[string]struct{}),
		links: make([]string, 0),
	}
	if href := findBaseHref(doc); href != "" {
		if u, err := base.Parse(href); err == nil && u.IsAbs() {
			w.base = u
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			w.processElement(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return w.links, w.meta
}

// processElement handles HTML element nodes.
func (w *pageWalk) processElement(n *html.Node) {
	switch n.Data {
	case "title":
		if n.Namespace == "" && !w.titleSet {
			w.meta.Title = textContent(n)
			w.titleSet = true
		}

	case "a", "area":
		if link := w.resolveURL(getAttr(n, "href")); link != "" {
			if _, dup := w.seen[link]; !dup {
				w.seen[link] = struct{}{}
				w.links = append(w.links, link)
			}
		}

	case "meta":
		content := collapseSpace(getAttr(n, "content"))
		if content == "" {
			return
		}
		switch strings.ToLower(strings.TrimSpace(getAttr(n, "name"))) {
		case "description":
			if w.meta.Description == "" {
				w.meta.Description = content
			}
		case "keywords":
			if w.meta.Keywords == "" {
				w.meta.Keywords = content
			}
		}

	case "h1":
		if text := textContent(n); text != "" {
			w.meta.H1Tags = append(w.meta.H1Tags, text)
		}
	}
}

// resolveURL resolves href against the page base and returns "" for links
// that cannot lead to another page.
//
// Design decision: We resolve URLs rather than storing them as-is because:
//  1. Makes deduplication easier
//  2. Allows proper target-domain classification
func (w *pageWalk) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	u, err := w.base.Parse(href)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// findBaseHref returns the href of the first <base> element.
func findBaseHref(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "base" {
		return strings.TrimSpace(getAttr(n, "href"))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := findBaseHref(c); href != "" {
			return href
		}
	}
	return ""
}

// textContent returns the whitespace-collapsed text below n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(n)
	return collapseSpace(sb.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}
