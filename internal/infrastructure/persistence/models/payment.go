package models

import (
	"time"

	"github.com/finledger/backend/internal/domain/payment"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for the Payment aggregate.
type PaymentModel struct {
	TenantAggregateModel
	PaymentNumber   string                   `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_tenant_number,priority:2"`
	Type            payment.PaymentType      `gorm:"type:varchar(20);not null;index"`
	PartyID         uuid.UUID                `gorm:"type:uuid;not null;index"`
	PartyName       string                   `gorm:"type:varchar(200);not null"`
	PaymentDate     time.Time                `gorm:"not null;index"`
	TotalAmount     decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Currency        string                   `gorm:"type:varchar(3);not null"`
	BankAccountCode string                   `gorm:"type:varchar(20);not null"`
	State           payment.PaymentState     `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	AllocatedAmount decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	PostedAt        *time.Time
	JournalEntryID  *uuid.UUID               `gorm:"type:uuid;index"`
	CancelledAt     *time.Time
	CancelReason    string                   `gorm:"type:varchar(500)"`
	Allocations     []PaymentAllocationModel `gorm:"foreignKey:PaymentID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// PaymentAllocationModel is the persistence model for one payment allocation.
type PaymentAllocationModel struct {
	BaseModel
	PaymentID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_payment_invoice,priority:1"`
	InvoiceID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_payment_invoice,priority:2;index"`
	InvoiceNumber   string          `gorm:"type:varchar(50);not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	InvoiceCurrency string          `gorm:"type:varchar(3);not null"`
	Rate            decimal.Decimal `gorm:"type:decimal(18,8);not null"`
	AmountInPayCcy  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AllocatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentAllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *PaymentModel) ToDomain() *payment.Payment {
	allocations := make([]payment.PaymentAllocation, 0, len(m.Allocations))
	for _, am := range m.Allocations {
		allocations = append(allocations, payment.PaymentAllocation{
			ID:              am.ID,
			PaymentID:       am.PaymentID,
			InvoiceID:       am.InvoiceID,
			InvoiceNumber:   am.InvoiceNumber,
			Amount:          am.Amount,
			InvoiceCurrency: valueobject.Currency(am.InvoiceCurrency),
			Rate:            am.Rate,
			AmountInPayCcy:  am.AmountInPayCcy,
			AllocatedAt:     am.AllocatedAt,
		})
	}
	return &payment.Payment{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		PaymentNumber:       m.PaymentNumber,
		Type:                m.Type,
		PartyID:             m.PartyID,
		PartyName:           m.PartyName,
		PaymentDate:         m.PaymentDate,
		TotalAmount:         m.TotalAmount,
		Currency:            valueobject.Currency(m.Currency),
		BankAccountCode:     m.BankAccountCode,
		State:               m.State,
		AllocatedAmount:     m.AllocatedAmount,
		Allocations:         allocations,
		PostedAt:            m.PostedAt,
		JournalEntryID:      m.JournalEntryID,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
	}
}

// FromDomain populates the persistence model from a domain Payment.
func (m *PaymentModel) FromDomain(p *payment.Payment) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.PaymentNumber = p.PaymentNumber
	m.Type = p.Type
	m.PartyID = p.PartyID
	m.PartyName = p.PartyName
	m.PaymentDate = p.PaymentDate
	m.TotalAmount = p.TotalAmount
	m.Currency = string(p.Currency)
	m.BankAccountCode = p.BankAccountCode
	m.State = p.State
	m.AllocatedAmount = p.AllocatedAmount
	m.PostedAt = p.PostedAt
	m.JournalEntryID = p.JournalEntryID
	m.CancelledAt = p.CancelledAt
	m.CancelReason = p.CancelReason

	m.Allocations = make([]PaymentAllocationModel, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		m.Allocations = append(m.Allocations, PaymentAllocationModel{
			BaseModel:       BaseModel{ID: a.ID, CreatedAt: a.AllocatedAt, UpdatedAt: a.AllocatedAt},
			PaymentID:       p.ID,
			InvoiceID:       a.InvoiceID,
			InvoiceNumber:   a.InvoiceNumber,
			Amount:          a.Amount,
			InvoiceCurrency: string(a.InvoiceCurrency),
			Rate:            a.Rate,
			AmountInPayCcy:  a.AmountInPayCcy,
			AllocatedAt:     a.AllocatedAt,
		})
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *payment.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}
