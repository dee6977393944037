package statement

import "strings"

// Section is the state of the activity-listing tracker. The issuer
// groups lines under three labeled sections; which section a line falls
// under decides the transaction type it is tagged with, or whether it
// is dropped entirely.
type Section int

const (
	SectionNone Section = iota
	SectionCredit
	SectionDebit
	SectionFees
)

func (s Section) String() string {
	switch s {
	case SectionCredit:
		return "credit"
	case SectionDebit:
		return "debit"
	case SectionFees:
		return "fees"
	default:
		return "none"
	}
}

// Statement text markers. These are fixed strings from the issuer's
// PDF generator, matched with Contains to tolerate whitespace drift.
const (
	activityMarker = "Account Activity"

	creditsHeader = "Payments and Other Credits"
	debitsHeader  = "Purchases and Cash Advances"
	feesHeader    = "Fees and Interest Charged"

	subTotalMarker      = "Sub Total"
	noTransactionMarker = "No transaction available"
)

// sectionTransitions is the header transition table, checked in order.
// A header line changes state and is never itself a transaction.
var sectionTransitions = []struct {
	marker string
	next   Section
}{
	{creditsHeader, SectionCredit},
	{debitsHeader, SectionDebit},
	{feesHeader, SectionFees},
}

// sectionTracker walks the lines of one qualifying page. State never
// carries across pages: each page scan starts a fresh tracker in
// SectionNone.
type sectionTracker struct {
	current Section
}

func newSectionTracker() *sectionTracker {
	return &sectionTracker{current: SectionNone}
}

// Observe consumes one line and reports whether it should be handed to
// the line parser, and if so under which candidate type. Exactly one
// rule applies per line:
//
//   - a section header switches state, line consumed;
//   - "Sub Total" / "No transaction available" are consumed, state kept;
//   - in credit/debit sections the line is a transaction candidate;
//   - in none/fees the line is dropped (fee and interest rows are
//     deliberately excluded from the output).
func (t *sectionTracker) Observe(line string) (TransactionType, bool) {
	for _, tr := range sectionTransitions {
		if strings.Contains(line, tr.marker) {
			t.current = tr.next
			return "", false
		}
	}

	if strings.Contains(line, subTotalMarker) || strings.Contains(line, noTransactionMarker) {
		return "", false
	}

	switch t.current {
	case SectionCredit:
		return TypeCredit, true
	case SectionDebit:
		return TypeDebit, true
	default:
		return "", false
	}
}
