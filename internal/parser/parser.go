package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file types no converter handles.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Converter turns raw document bytes into markdown whose "#" headings carry
// the document structure.
type Converter interface {
	ToMarkdown(ctx context.Context, data []byte, filename string) (string, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options selects converter behavior per format.
type Options struct {
	// Layout, when set, handles PDFs instead of the local text extractor.
	Layout            Converter
	FallbackPdftotext bool
}

// ForFile returns the appropriate converter for a filename.
func ForFile(filename string, opts Options) (Converter, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextConverter{}, nil
	case ".md", ".markdown":
		return &MarkdownConverter{}, nil
	case ".html", ".htm":
		return &HTMLConverter{}, nil
	case ".pdf":
		if opts.Layout != nil {
			return opts.Layout, nil
		}
		return &PDFConverter{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXConverter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Router dispatches each document to the converter for its extension.
type Router struct {
	Options Options
}

func NewRouter(opts Options) *Router {
	return &Router{Options: opts}
}

func (r *Router) ToMarkdown(ctx context.Context, data []byte, filename string) (string, error) {
	c, err := ForFile(filename, r.Options)
	if err != nil {
		return "", err
	}
	return c.ToMarkdown(ctx, data, filename)
}

func heading(level int, title string) string {
	title = strings.Join(strings.Fields(title), " ")
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return strings.Repeat("#", level) + " " + title
}

func joinBlocks(blocks []string) string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return strings.Join(out, "\n\n")
}
