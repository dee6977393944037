package statement

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Transaction line layout, positionally:
//
//	<posted MM/DD/YYYY> <transaction MM/DD/YYYY> <description> <amount>
//
// The amount may carry a currency symbol, comma grouping and wrapping
// parentheses (the issuer's convention for reversed amounts). The
// description is the greedy span between the second date and the
// amount.
var txnLinePattern = regexp.MustCompile(
	`^(\d{2}/\d{2}/\d{4})\s+(\d{2}/\d{2}/\d{4})\s+(.+?)\s+(\(?\$?[\d,.]+\)?)\s*$`,
)

// transactionDateLayout is month-first, unlike the bill period dates on
// page one.
const transactionDateLayout = "01/02/2006"

func parseTransactionDate(s string) (time.Time, bool) {
	t, err := time.Parse(transactionDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseAmount decodes a monetary string: currency symbol and grouping
// separators are stripped, and a value wrapped in parentheses is
// negated.
func parseAmount(s string) (float64, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// matchTransactionLine attempts to decode one candidate line under the
// given section-derived type. Any partial match (wrong shape, an
// impossible calendar date, an unparseable amount) yields nothing:
// continuation and filler lines inside a section are normal, not
// errors.
//
// A negative (parenthesized) amount is a reversal: the emitted
// transaction carries the opposite type and the absolute amount, so
// Amount is never negative.
func matchTransactionLine(line string, candidate TransactionType) (Transaction, bool) {
	m := txnLinePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Transaction{}, false
	}

	posted, ok := parseTransactionDate(m[1])
	if !ok {
		return Transaction{}, false
	}
	txDate, ok := parseTransactionDate(m[2])
	if !ok {
		return Transaction{}, false
	}
	amount, ok := parseAmount(m[4])
	if !ok {
		return Transaction{}, false
	}

	typ := candidate
	if amount < 0 {
		amount = -amount
		typ = candidate.Opposite()
	}

	return Transaction{
		PostedDate:      posted,
		TransactionDate: txDate,
		Description:     strings.TrimSpace(m[3]),
		Amount:          amount,
		Type:            typ,
	}, true
}
