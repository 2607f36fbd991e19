package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Link is an anchor found on a page.
type Link struct {
	// URL is the absolute link target without fragment.
	URL string

	// Text is the anchor's visible text, whitespace collapsed.
	Text string
}

// ParseResult contains what discovery needs from an HTML page.
type ParseResult struct {
	// Title is the text of the <title> element.
	Title string

	// Heading is the text of the first <h1>, used when there is no title.
	Heading string

	// InternalLinks are links to the same host as the page, in document
	// order and without duplicates.
	InternalLinks []Link
}

// Parser extracts titles and links from HTML.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// NewParser creates a new HTML parser with the given base URL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		InternalLinks: make([]Link, 0),
	}
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if result.Title == "" {
					result.Title = textOf(n)
				}
			case "h1":
				if result.Heading == "" {
					result.Heading = textOf(n)
				}
			case "a":
				if target := p.resolveURL(getAttr(n, "href")); target != "" && p.isInternal(target) && !seen[target] {
					seen[target] = true
					result.InternalLinks = append(result.InternalLinks, Link{URL: target, Text: textOf(n)})
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return result, nil
}

// resolveURL resolves href against the base URL.
// Non-navigational schemes and bare fragments yield "".
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// isInternal reports whether link points at the page's own host.
func (p *Parser) isInternal(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, p.baseURL.Host)
}

// textOf returns the text content of n with whitespace collapsed.
func textOf(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
