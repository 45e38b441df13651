package digest

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var droppedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
}

// Compact drops elements that carry no readable newsletter content before the
// document is sent to a model. Everything else, comments included, is copied
// through byte for byte.
func Compact(doc string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(doc))
	var b bytes.Buffer

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return b.String(), nil
			}
			return "", z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			// TagName lower-cases the tokenizer buffer in place
			raw := append([]byte(nil), z.Raw()...)
			name, _ := z.TagName()
			if droppedElements[string(name)] {
				if tt == html.StartTagToken {
					skipElement(z, string(name))
				}
				continue
			}
			b.Write(raw)

		default:
			b.Write(z.Raw())
		}
	}
}

func skipElement(z *html.Tokenizer, name string) {
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.EndTagToken:
			if tag, _ := z.TagName(); string(tag) == name {
				return
			}
		}
	}
}
