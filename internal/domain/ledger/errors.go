package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MissingAccountError signals that the chart of accounts has no active
// mapping for a role. It names the role and jurisdiction so the caller
// can report exactly which mapping is absent.
type MissingAccountError struct {
	Role         AccountRole
	Jurisdiction string
}

// Error implements the error interface
func (e *MissingAccountError) Error() string {
	if e.Jurisdiction == "" {
		return fmt.Sprintf("no account configured for role %s", e.Role)
	}
	return fmt.Sprintf("no account configured for role %s in jurisdiction %s", e.Role, e.Jurisdiction)
}

// UnbalancedEntryError signals that a constructed journal entry's
// debits do not equal its credits. This is an internal invariant
// violation, never a user input error; the posting transaction must
// abort and the condition must be logged with full context.
type UnbalancedEntryError struct {
	EntryNumber string
	Debits      decimal.Decimal
	Credits     decimal.Decimal
}

// Error implements the error interface
func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("journal entry %s is unbalanced: debits %s != credits %s",
		e.EntryNumber, e.Debits, e.Credits)
}
