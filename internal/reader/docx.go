package reader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// parseDOCX reads word/document.xml and emits one paragraph per w:p, splitting
// additionally on explicit line breaks.
func parseDOCX(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid docx container: %w", err)
	}
	var doc *zip.File
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, "word/document.xml") {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, errors.New("invalid docx container: word/document.xml not found")
	}
	rc, err := doc.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return walkDocumentXML(rc)
}

func walkDocumentXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var paras []string
	var current strings.Builder
	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			paras = append(paras, text)
		}
		current.Reset()
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			flush()
			return paras, nil
		}
		if err != nil {
			return nil, fmt.Errorf("malformed document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return nil, fmt.Errorf("malformed document.xml: %w", err)
				}
				current.WriteString(text)
			case "tab":
				current.WriteByte(' ')
			case "br", "cr":
				flush()
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p", "tr":
				flush()
			case "tc":
				current.WriteByte(' ')
			}
		}
	}
}
