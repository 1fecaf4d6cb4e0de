package ledger

import (
	"context"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountRole is the logical role a posting resolves against. The
// chart of accounts maps each role (optionally per jurisdiction) to a
// concrete account code.
type AccountRole string

const (
	RoleAccountsReceivable AccountRole = "AR"
	RoleAccountsPayable    AccountRole = "AP"
	RoleRevenue            AccountRole = "REVENUE"
	RoleExpense            AccountRole = "EXPENSE"
	RoleTaxOutput          AccountRole = "TAX_OUTPUT"
	RoleTaxInput           AccountRole = "TAX_INPUT"
	RoleBank               AccountRole = "BANK"
)

// IsValid checks if the account role is valid
func (r AccountRole) IsValid() bool {
	switch r {
	case RoleAccountsReceivable, RoleAccountsPayable, RoleRevenue,
		RoleExpense, RoleTaxOutput, RoleTaxInput, RoleBank:
		return true
	}
	return false
}

// String returns the string representation of AccountRole
func (r AccountRole) String() string {
	return string(r)
}

// AccountType is the accounting classification of an account
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is valid
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// Account is one entry in the chart of accounts
type Account struct {
	shared.TenantAggregateRoot
	Code         string
	Name         string
	Type         AccountType
	Role         AccountRole
	Jurisdiction string // empty = default mapping for the role
	Active       bool
}

// NewAccount creates a chart-of-accounts entry
func NewAccount(tenantID uuid.UUID, code, name string, accType AccountType, role AccountRole, jurisdiction string) (*Account, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CODE", "Account code cannot be empty")
	}
	if len(code) > 20 {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CODE", "Account code cannot exceed 20 characters")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}
	if !accType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_TYPE", "Account type is not valid")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_ROLE", "Account role is not valid")
	}

	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Type:                accType,
		Role:                role,
		Jurisdiction:        jurisdiction,
		Active:              true,
	}, nil
}

// Deactivate removes the account from resolution without deleting it
func (a *Account) Deactivate() {
	a.Active = false
	a.IncrementVersion()
}

// AccountResolver maps logical roles to chart-of-account entries.
// Resolution tries the jurisdiction-specific mapping first, then the
// tenant default; a miss is always a MissingAccountError naming the
// role and jurisdiction, never a generic not-found.
type AccountResolver struct {
	accounts AccountRepository
}

// NewAccountResolver creates an AccountResolver backed by a repository
func NewAccountResolver(accounts AccountRepository) *AccountResolver {
	return &AccountResolver{accounts: accounts}
}

// Resolve returns the active account for a role within a jurisdiction
func (r *AccountResolver) Resolve(ctx context.Context, tenantID uuid.UUID, role AccountRole, jurisdiction string) (*Account, error) {
	if !role.IsValid() {
		return nil, &MissingAccountError{Role: role, Jurisdiction: jurisdiction}
	}

	account, err := r.accounts.FindByRole(ctx, tenantID, role, jurisdiction)
	if err == nil && account != nil && account.Active {
		return account, nil
	}
	if err != nil && err != shared.ErrNotFound {
		return nil, err
	}

	if jurisdiction != "" {
		account, err = r.accounts.FindByRole(ctx, tenantID, role, "")
		if err == nil && account != nil && account.Active {
			return account, nil
		}
		if err != nil && err != shared.ErrNotFound {
			return nil, err
		}
	}

	return nil, &MissingAccountError{Role: role, Jurisdiction: jurisdiction}
}
