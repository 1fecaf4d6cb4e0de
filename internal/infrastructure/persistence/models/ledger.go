package models

import (
	"time"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for the Account aggregate.
type AccountModel struct {
	TenantAggregateModel
	Code         string             `gorm:"type:varchar(20);not null;uniqueIndex:idx_account_tenant_code,priority:2"`
	Name         string             `gorm:"type:varchar(200);not null"`
	Type         ledger.AccountType `gorm:"type:varchar(20);not null"`
	Role         ledger.AccountRole `gorm:"type:varchar(20);not null;index:idx_account_tenant_role,priority:2"`
	Jurisdiction string             `gorm:"type:varchar(10);not null;default:'';index:idx_account_tenant_role,priority:3"`
	Active       bool               `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account.
func (m *AccountModel) ToDomain() *ledger.Account {
	return &ledger.Account{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Code:                m.Code,
		Name:                m.Name,
		Type:                m.Type,
		Role:                m.Role,
		Jurisdiction:        m.Jurisdiction,
		Active:              m.Active,
	}
}

// FromDomain populates the persistence model from a domain Account.
func (m *AccountModel) FromDomain(a *ledger.Account) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Code = a.Code
	m.Name = a.Name
	m.Type = a.Type
	m.Role = a.Role
	m.Jurisdiction = a.Jurisdiction
	m.Active = a.Active
}

// AccountModelFromDomain creates a new persistence model from a domain Account.
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}

// JournalEntryModel is the persistence model for the JournalEntry aggregate.
// The unique (tenant, source_type, source_id) index backs idempotent posting.
type JournalEntryModel struct {
	TenantAggregateModel
	EntryNumber  string                   `gorm:"type:varchar(50);not null;uniqueIndex:idx_journal_tenant_number,priority:2"`
	EntryDate    time.Time                `gorm:"not null;index"`
	Currency     string                   `gorm:"type:varchar(3);not null"`
	Memo         string                   `gorm:"type:varchar(500)"`
	Posted       bool                     `gorm:"not null;default:false"`
	PostedAt     *time.Time
	ReversalOfID *uuid.UUID               `gorm:"type:uuid;index"`
	SourceType   ledger.JournalSourceType `gorm:"type:varchar(20);not null;uniqueIndex:idx_journal_tenant_source,priority:2"`
	SourceID     uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_journal_tenant_source,priority:3"`
	Lines        []JournalLineModel       `gorm:"foreignKey:EntryID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// JournalLineModel is the persistence model for one journal entry leg.
type JournalLineModel struct {
	BaseModel
	EntryID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo      int             `gorm:"not null"`
	AccountCode string          `gorm:"type:varchar(20);not null;index"`
	Debit       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Credit      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (JournalLineModel) TableName() string {
	return "journal_lines"
}

// ToDomain converts the persistence model to a domain JournalEntry.
func (m *JournalEntryModel) ToDomain() *ledger.JournalEntry {
	lines := make([]ledger.JournalLine, 0, len(m.Lines))
	for _, lm := range m.Lines {
		lines = append(lines, ledger.JournalLine{
			ID:          lm.ID,
			LineNo:      lm.LineNo,
			AccountCode: lm.AccountCode,
			Debit:       lm.Debit,
			Credit:      lm.Credit,
		})
	}
	return &ledger.JournalEntry{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		EntryNumber:         m.EntryNumber,
		EntryDate:           m.EntryDate,
		Currency:            valueobject.Currency(m.Currency),
		Memo:                m.Memo,
		Posted:              m.Posted,
		PostedAt:            m.PostedAt,
		ReversalOfID:        m.ReversalOfID,
		SourceType:          m.SourceType,
		SourceID:            m.SourceID,
		Lines:               lines,
	}
}

// FromDomain populates the persistence model from a domain JournalEntry.
func (m *JournalEntryModel) FromDomain(e *ledger.JournalEntry) {
	m.FromDomainTenantAggregateRoot(e.TenantAggregateRoot)
	m.EntryNumber = e.EntryNumber
	m.EntryDate = e.EntryDate
	m.Currency = string(e.Currency)
	m.Memo = e.Memo
	m.Posted = e.Posted
	m.PostedAt = e.PostedAt
	m.ReversalOfID = e.ReversalOfID
	m.SourceType = e.SourceType
	m.SourceID = e.SourceID

	m.Lines = make([]JournalLineModel, 0, len(e.Lines))
	for _, line := range e.Lines {
		m.Lines = append(m.Lines, JournalLineModel{
			BaseModel:   BaseModel{ID: line.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
			EntryID:     e.ID,
			LineNo:      line.LineNo,
			AccountCode: line.AccountCode,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}
}

// JournalEntryModelFromDomain creates a new persistence model from a domain JournalEntry.
func JournalEntryModelFromDomain(e *ledger.JournalEntry) *JournalEntryModel {
	m := &JournalEntryModel{}
	m.FromDomain(e)
	return m
}
