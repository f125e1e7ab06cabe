package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// pdfText extracts the plain text of all pages of a PDF file.
// The pdf library works with file paths, which suits us: uploads are saved
// to disk before ingestion.
func pdfText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	body, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text from %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", fmt.Errorf("failed to read pdf text from %s: %w", path, err)
	}

	return buf.String(), nil
}
