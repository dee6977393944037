package statement

import (
	"regexp"
	"strings"
	"time"
)

// Page-one summary patterns. Each search is independent: a miss leaves
// its field nil and never blocks the others.
var (
	billPeriodPattern      = regexp.MustCompile(`Bill Period:\s*(\d{2}-\d{2}-\d{4})\s*-\s*(\d{2}-\d{2}-\d{4})`)
	previousBalancePattern = regexp.MustCompile(`Previous Balance\s*\$?([\d,.]+)`)
	newBalancePattern      = regexp.MustCompile(`New Balance[^$]*\$?([\d,.]+)`)
)

// billPeriodLayout is day-first. The issuer prints cycle dates as
// DD-MM-YYYY while transaction dates are MM/DD/YYYY; both layouts are
// correct for this statement format.
const billPeriodLayout = "02-01-2006"

func parseBillDate(s string) (time.Time, bool) {
	t, err := time.Parse(billPeriodLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// extractSummary scans the first page's text for statement-level
// fields. It builds the summary from scratch on every call, so
// re-running it can never leave a half-updated value behind.
func extractSummary(firstPage string) StatementSummary {
	var s StatementSummary

	if m := billPeriodPattern.FindStringSubmatch(firstPage); m != nil {
		start, okStart := parseBillDate(m[1])
		end, okEnd := parseBillDate(m[2])
		// The period is only meaningful as a pair.
		if okStart && okEnd {
			s.BillPeriodStart = &start
			s.BillPeriodEnd = &end
		}
	}

	if m := previousBalancePattern.FindStringSubmatch(firstPage); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			s.PreviousBalance = &v
		}
	}

	if m := newBalancePattern.FindStringSubmatch(firstPage); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			s.NewBalance = &v
		}
	}

	return s
}
