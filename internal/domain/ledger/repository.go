package ledger

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for chart-of-accounts persistence
type AccountRepository interface {
	// FindByIDForTenant finds an account for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)

	// FindByCode finds an account by code for a tenant
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Account, error)

	// FindByRole finds the account mapped to a role within a jurisdiction.
	// An empty jurisdiction selects the tenant default mapping.
	FindByRole(ctx context.Context, tenantID uuid.UUID, role AccountRole, jurisdiction string) (*Account, error)

	// FindAllForTenant lists all accounts for a tenant
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]Account, error)

	// Save creates or updates an account
	Save(ctx context.Context, account *Account) error
}

// JournalEntryRepository defines the interface for journal persistence.
// The ledger is append-only: entries are created and posted, never
// updated in place or deleted.
type JournalEntryRepository interface {
	// FindByIDForTenant finds a journal entry with its lines for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntry, error)

	// FindBySource finds the entry posted from a source document, if any.
	// This is the idempotency lookup for posting.
	FindBySource(ctx context.Context, tenantID uuid.UUID, sourceType JournalSourceType, sourceID uuid.UUID) (*JournalEntry, error)

	// FindAllForTenant lists journal entries for a tenant, most recent first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]JournalEntry, error)

	// Save persists a new journal entry and its lines
	Save(ctx context.Context, entry *JournalEntry) error

	// GenerateEntryNumber generates a unique entry number for a tenant
	GenerateEntryNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}
