package crawl

import (
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const excerptLimit = 2000

// document holds what the crawler extracts from one HTML page.
type document struct {
	Title           string
	MetaDescription string
	Headings        []string
	Excerpt         string
	Links           []string
}

// parseDocument walks the HTML tree collecting the title, meta description,
// h1/h2 headings, a visible-text excerpt and anchor hrefs resolved against
// base.
func parseDocument(r io.Reader, base *url.URL) (document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return document{}, err
	}

	var doc document
	var text strings.Builder

	var walk func(n *html.Node, skip bool)
	walk = func(n *html.Node, skip bool) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template", "svg":
				skip = true
			case "title":
				if doc.Title == "" {
					doc.Title = strings.TrimSpace(nodeText(n))
				}
			case "meta":
				if attr(n, "name") == "description" && doc.MetaDescription == "" {
					doc.MetaDescription = strings.TrimSpace(attr(n, "content"))
				}
			case "h1", "h2":
				if heading := strings.TrimSpace(nodeText(n)); heading != "" {
					doc.Headings = append(doc.Headings, heading)
				}
			case "a":
				if href := attr(n, "href"); crawlable(href) {
					if resolved, err := base.Parse(href); err == nil {
						doc.Links = append(doc.Links, resolved.String())
					}
				}
			}
		case html.TextNode:
			if !skip && text.Len() < excerptLimit {
				if t := strings.TrimSpace(n.Data); t != "" {
					if text.Len() > 0 {
						text.WriteByte(' ')
					}
					text.WriteString(t)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, skip)
		}
	}
	walk(root, false)

	excerpt := text.String()
	if len(excerpt) > excerptLimit {
		cut := excerptLimit
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut]
	}
	doc.Excerpt = excerpt
	return doc, nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
