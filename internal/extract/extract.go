// Package extract turns uploaded document files into plain text for chunking.
// Supported formats: PDF, Markdown, and plain text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType is returned when a file extension has no extractor.
var ErrUnsupportedType = errors.New("unsupported document type")

// SupportedExtensions lists the file extensions Text accepts.
var SupportedExtensions = []string{".pdf", ".md", ".markdown", ".txt"}

// Supported reports whether the filename has an extension Text can handle.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Text extracts the plain text content of the file at path, dispatching on
// the file extension. The result is a single concatenated string per
// document, ready for the chunker.
func Text(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		return pdfText(path)
	case ".md", ".markdown":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", path, err)
		}
		return markdownText(content), nil
	case ".txt":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", path, err)
		}
		return string(content), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
}
