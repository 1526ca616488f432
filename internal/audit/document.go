package audit

import (
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// Document is the structure of index.html that the DOM audit looks at.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because markup hidden in comments, attribute order and quoting
// style would all defeat a pattern, and the parser handles malformed HTML
// the way browsers do.
type Document struct {
	// ManifestLinks contains the href of every <link rel="manifest">.
	ManifestLinks []string

	// Scripts contains the src of every <script src>.
	Scripts []string

	// NavTabs contains one entry per element with the nav-tab class.
	NavTabs []NavTab

	// IDs is the set of element ids in the document.
	IDs map[string]bool
}

// NavTab is a navigation tab element.
type NavTab struct {
	// Tag is the element name, usually "button".
	Tag string

	// Target is the data-tab attribute value.
	Target string

	// HasTarget is false when the element has no data-tab attribute.
	HasTarget bool
}

// ParseDocument parses HTML content and extracts the audited elements.
func ParseDocument(content io.Reader) (*Document, error) {
	root, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		ManifestLinks: make([]string, 0),
		Scripts:       make([]string, 0),
		NavTabs:       make([]NavTab, 0),
		IDs:           make(map[string]bool),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			doc.processElement(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return doc, nil
}

// processElement handles HTML element nodes.
func (d *Document) processElement(n *html.Node) {
	if id, ok := getAttr(n, "id"); ok && id != "" {
		d.IDs[id] = true
	}

	switch n.Data {
	case "link":
		if rel, _ := getAttr(n, "rel"); hasToken(strings.ToLower(rel), "manifest") {
			href, _ := getAttr(n, "href")
			d.ManifestLinks = append(d.ManifestLinks, href)
		}

	case "script":
		if src, ok := getAttr(n, "src"); ok {
			d.Scripts = append(d.Scripts, src)
		}
	}

	if class, _ := getAttr(n, "class"); hasToken(class, "nav-tab") {
		target, ok := getAttr(n, "data-tab")
		d.NavTabs = append(d.NavTabs, NavTab{Tag: n.Data, Target: target, HasTarget: ok})
	}
}

// getAttr returns the value of an attribute and whether it is present.
// The parser lowercases attribute names.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// hasToken reports whether a space-separated attribute value such as class
// or rel contains token.
func hasToken(value, token string) bool {
	return slices.Contains(strings.Fields(value), token)
}
