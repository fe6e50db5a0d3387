package reader

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

func parsePDF(data []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid pdf: %w", err)
	}
	text, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("failed to extract pdf text: %w", err)
	}
	out, err := io.ReadAll(text)
	if err != nil {
		return nil, err
	}
	return splitLines(string(out)), nil
}
