package statement

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText renders each page of an unprotected PDF into plain text,
// preserving line order within a page. The result always has one entry
// per page: a page with no extractable text contributes an empty
// string, because the summary extractor depends on positional indexing
// (index 0 = first page).
func ExtractText(pdfBytes []byte) (pages []string, err error) {
	// The pdf library panics on some malformed files instead of
	// returning an error.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &ExtractionError{Err: fmt.Errorf("pdf reader panic: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	numPages := reader.NumPage()
	pages = make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		pages = append(pages, pageText(reader.Page(i)))
	}

	return pages, nil
}

// pageText reconstructs a page's lines from its text rows. A page whose
// content stream cannot be decoded yields "" rather than an error so
// the page slice keeps its positional slots.
func pageText(page pdf.Page) string {
	if page.V.IsNull() {
		return ""
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}

	var lines []string
	for _, row := range rows {
		var parts []string
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		line := strings.TrimSpace(strings.Join(parts, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}
