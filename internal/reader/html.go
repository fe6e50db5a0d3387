package reader

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "br": true, "tr": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"dt": true, "dd": true, "blockquote": true, "pre": true, "table": true, "ul": true, "ol": true,
}

// parseHTML walks the token stream and starts a new paragraph at every block
// element. Script, style and title text is skipped.
func parseHTML(data []byte) ([]string, error) {
	tokenizer := html.NewTokenizer(bytes.NewReader(data))
	var paras []string
	var current strings.Builder
	skip := 0

	flush := func() {
		if text := strings.Join(strings.Fields(current.String()), " "); text != "" {
			paras = append(paras, text)
		}
		current.Reset()
	}

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				flush()
				return paras, nil
			}
			return nil, tokenizer.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "script", "style", "title":
				if token.Type == html.StartTagToken {
					skip++
				}
			default:
				if blockTags[token.Data] {
					flush()
				}
			}

		case html.EndTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "script", "style", "title":
				if skip > 0 {
					skip--
				}
			default:
				if blockTags[token.Data] {
					flush()
				}
			}

		case html.TextToken:
			if skip == 0 {
				current.WriteString(tokenizer.Token().Data)
				current.WriteByte(' ')
			}
		}
	}
}
