// Package extract turns uploaded documents into plain text. Extraction is
// best-effort: formatting is discarded and no layout inference is attempted.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for any extension outside the supported set.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format identifies a supported source format.
type Format string

const (
	FormatText Format = "text"
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

var formatsByExt = map[string]Format{
	".txt":  FormatText,
	".docx": FormatDOCX,
	".pdf":  FormatPDF,
}

// Document is the result of extracting one file.
type Document struct {
	Text   string
	Format Format
	Source string
}

// FormatOf maps an extension such as ".PDF" to its Format.
func FormatOf(ext string) (Format, error) {
	f, ok := formatsByExt[strings.ToLower(ext)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// Supported reports whether name carries an extension Text understands.
func Supported(name string) bool {
	_, err := FormatOf(filepath.Ext(name))
	return err == nil
}

// Text extracts plain text from data according to the declared extension.
func Text(data []byte, ext string) (string, error) {
	format, err := FormatOf(ext)
	if err != nil {
		return "", err
	}
	switch format {
	case FormatDOCX:
		return DOCXText(data)
	case FormatPDF:
		return PDFText(data)
	default:
		// UTF-8 bytes are passed through untouched.
		return string(data), nil
	}
}

// File extracts the document stored under name.
func File(name string, data []byte) (*Document, error) {
	ext := filepath.Ext(name)
	format, err := FormatOf(ext)
	if err != nil {
		return nil, err
	}
	text, err := Text(data, ext)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", name, err)
	}
	return &Document{Text: text, Format: format, Source: name}, nil
}
