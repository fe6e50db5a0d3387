// Package reader turns source documents into ordered paragraph lists.
package reader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// ErrUnsupported is returned for a source whose format cannot be parsed.
	ErrUnsupported = errors.New("unsupported source format")
	// ErrDisallowed is returned when robots.txt forbids fetching a remote source.
	ErrDisallowed = errors.New("source disallowed by robots.txt")
)

// Format is a parseable document format.
type Format string

const (
	FormatDOCX Format = "docx"
	FormatHTML Format = "html"
	FormatText Format = "txt"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// FormatOf derives the format from a file name or URL path.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".docx":
		return FormatDOCX, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".txt", ".md":
		return FormatText, nil
	case ".pdf":
		return FormatPDF, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, name)
}

// Parse extracts the paragraphs of data in the given format.
func Parse(format Format, data []byte) ([]string, error) {
	switch format {
	case FormatDOCX:
		return parseDOCX(data)
	case FormatHTML:
		return parseHTML(data)
	case FormatText:
		return parseText(data)
	case FormatPDF:
		return parsePDF(data)
	case FormatXLSX:
		return parseXLSX(data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, format)
}

// IsRemote reports whether source is an http(s) URL.
func IsRemote(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Reader opens local files and remote URLs.
type Reader struct {
	fetcher *Fetcher
	logger  *logrus.Entry
}

// New returns a reader. A nil fetcher disables remote sources.
func New(fetcher *Fetcher, logger *logrus.Entry) *Reader {
	return &Reader{fetcher: fetcher, logger: logger.WithField("component", "reader")}
}

// Read returns the paragraphs of a local path or http(s) URL.
func (r *Reader) Read(ctx context.Context, source string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if IsRemote(source) {
		if r.fetcher == nil {
			return nil, fmt.Errorf("%w: remote sources are disabled", ErrUnsupported)
		}
		res, err := r.fetcher.Fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		r.logger.WithFields(logrus.Fields{
			"url":    source,
			"format": res.Format,
			"bytes":  len(res.Data),
		}).Debug("Fetched remote source")
		return Parse(res.Format, res.Data)
	}

	format, err := FormatOf(source)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Clean(source))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	paras, err := Parse(format, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", source, err)
	}
	return paras, nil
}
