// Package statement decodes one issuer's password-protected credit
// card statement PDFs into typed transactions and a statement summary.
//
// The package is pure transformation: bytes in, values out. It keeps no
// state across calls and performs no I/O, so concurrent calls for
// different statements are safe.
package statement

import "strings"

// Parse is the full statement pipeline: decrypt the raw PDF, extract
// per-page text, then decode the activity listing and the first-page
// summary.
//
// The two failure modes are *DecryptionError and *ExtractionError;
// both abort the whole statement before any output is produced.
// A successfully parsed statement with zero transactions is a normal
// result, not an error.
func Parse(pdfBytes []byte, password string) ([]Transaction, StatementSummary, error) {
	decrypted, err := Decrypt(pdfBytes, password)
	if err != nil {
		return nil, StatementSummary{}, err
	}

	pages, err := ExtractText(decrypted)
	if err != nil {
		return nil, StatementSummary{}, err
	}

	transactions, summary := ParsePages(pages)
	return transactions, summary, nil
}

// ParsePages decodes already-extracted page text. Split out from Parse
// so the text layer can be exercised without PDF fixtures.
//
// Only pages containing the "Account Activity" marker are scanned for
// transactions; the section tracker restarts on every such page.
// Output order is page order, then line order within a page.
func ParsePages(pages []string) ([]Transaction, StatementSummary) {
	transactions := []Transaction{}

	var summary StatementSummary
	if len(pages) > 0 {
		summary = extractSummary(pages[0])
	}

	for _, page := range pages {
		if !strings.Contains(page, activityMarker) {
			continue
		}

		tracker := newSectionTracker()
		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimSpace(line)

			candidate, parseable := tracker.Observe(line)
			if !parseable {
				continue
			}

			if tx, ok := matchTransactionLine(line, candidate); ok {
				transactions = append(transactions, tx)
			}
		}
	}

	return transactions, summary
}
