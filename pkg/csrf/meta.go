package csrf

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// ParseMeta collects name/content pairs of every <meta> element in an HTML
// document. The first occurrence of a name wins.
func ParseMeta(r io.Reader) (map[string]string, error) {
	meta := make(map[string]string)
	z := html.NewTokenizer(r)

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("parse html: %w", err)
			}
			return meta, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "meta" {
				continue
			}

			var name, content string
			var hasContent bool
			for _, a := range tok.Attr {
				switch a.Key {
				case "name":
					name = a.Val
				case "content":
					content = a.Val
					hasContent = true
				}
			}

			if name == "" || !hasContent {
				continue
			}
			if _, seen := meta[name]; !seen {
				meta[name] = content
			}
		}
	}
}
