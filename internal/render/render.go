package render

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var converter = md.NewConverter("", true, nil)

// ToMarkdown converts an HTML newsletter or report to Markdown.
func ToMarkdown(html string) (string, error) {
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert to markdown: %w", err)
	}
	return markdown, nil
}

var readerPolicy = newReaderPolicy()

func newReaderPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h1", "h2", "h3", "h4", "h5", "h6", "p", "a", "ul", "ol", "li",
		"b", "strong", "i", "em", "mark", "small", "del", "ins", "sub", "sup",
		"blockquote", "q", "cite", "pre", "code", "br", "hr",
		"table", "thead", "tbody", "tr", "th", "td", "caption",
		"span", "div", "section", "article", "header", "footer",
	)

	p.AllowStandardURLs()
	p.AllowAttrs("href", "target", "rel").OnElements("a")
	p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	p.AllowAttrs("width", "height").OnElements("table", "td", "th")
	p.AllowAttrs("title", "class", "id", "name", "style").Globally()

	return p
}

// Sanitize strips everything but the reader allowlist and makes every link
// open in a new tab without handing over the opener.
func Sanitize(html string) (string, error) {
	clean := readerPolicy.Sanitize(html)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return "", fmt.Errorf("failed to parse sanitized html: %w", err)
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		a.SetAttr("target", "_blank")
		a.SetAttr("rel", "noopener noreferrer")
	})

	return doc.Find("body").Html()
}
