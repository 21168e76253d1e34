// Package pdfext extracts plain text from uploaded PDFs.
package pdfext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText pulls the text of every page, joined with blank lines.
//
// It never returns an error: on failure the result is a placeholder string
// embedding the cause, so the document still gets stored and embedded (a
// low-quality embedding beats a failed upload).
func ExtractText(filePath string) string {
	text, err := extract(filePath)
	if err != nil {
		return fmt.Sprintf("[PDF text extraction failed: %v]", err)
	}
	return text
}

func extract(filePath string) (text string, err error) {
	// The pdf library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var parts []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(content); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	if len(parts) == 0 {
		// Fall back to the whole-document reader for PDFs whose pages
		// decode only as a stream.
		var buf bytes.Buffer
		r, err := reader.GetPlainText()
		if err != nil {
			return "", err
		}
		if _, err := buf.ReadFrom(r); err != nil {
			return "", err
		}
		return strings.TrimSpace(buf.String()), nil
	}

	return strings.Join(parts, "\n\n"), nil
}
