package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/finledger/backend/internal/domain/payment"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements payment.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByIDForTenant finds a payment with its allocations for a tenant
func (r *GormPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*payment.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("allocated_at ASC") }).
		First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a payment by number for a tenant
func (r *GormPaymentRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, paymentNumber string) (*payment.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("allocated_at ASC") }).
		First(&model, "payment_number = ? AND tenant_id = ?", paymentNumber, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds payments for a tenant with filtering
func (r *GormPaymentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter payment.PaymentFilter) ([]payment.Payment, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)

	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.PartyID != nil {
		query = query.Where("party_id = ?", *filter.PartyID)
	}
	if filter.State != nil {
		query = query.Where("state = ?", *filter.State)
	}

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	var dbModels []models.PaymentModel
	if err := query.
		Preload("Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("allocated_at ASC") }).
		Order("payment_date DESC").
		Find(&dbModels).Error; err != nil {
		return nil, err
	}

	payments := make([]payment.Payment, 0, len(dbModels))
	for i := range dbModels {
		payments = append(payments, *dbModels[i].ToDomain())
	}
	return payments, nil
}

// FindByInvoice finds payments holding an allocation against an invoice
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]payment.Payment, error) {
	var dbModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN payment_allocations ON payment_allocations.payment_id = payments.id").
		Where("payments.tenant_id = ? AND payment_allocations.invoice_id = ?", tenantID, invoiceID).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("allocated_at ASC") }).
		Find(&dbModels).Error; err != nil {
		return nil, err
	}

	payments := make([]payment.Payment, 0, len(dbModels))
	for i := range dbModels {
		payments = append(payments, *dbModels[i].ToDomain())
	}
	return payments, nil
}

// Save creates or updates a payment and its allocations
func (r *GormPaymentRepository) Save(ctx context.Context, pay *payment.Payment) error {
	model := models.PaymentModelFromDomain(pay)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("payment_id = ?", model.ID).Delete(&models.PaymentAllocationModel{}).Error; err != nil {
			return err
		}
		if len(model.Allocations) > 0 {
			if err := tx.Create(&model.Allocations).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveWithLock saves with optimistic locking (version compare-and-set)
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, pay *payment.Payment) error {
	model := models.PaymentModelFromDomain(pay)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PaymentModel{}).
			Where("id = ? AND version = ?", model.ID, model.Version-1).
			Select("*").Omit("Allocations", "created_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := tx.Where("payment_id = ?", model.ID).Delete(&models.PaymentAllocationModel{}).Error; err != nil {
			return err
		}
		if len(model.Allocations) > 0 {
			if err := tx.Create(&model.Allocations).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GeneratePaymentNumber generates a unique payment number for a tenant
func (r *GormPaymentRepository) GeneratePaymentNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("PAY-%s-%06d", uuid.New().String()[:8], count+1), nil
}

// Ensure GormPaymentRepository implements the interface
var _ payment.PaymentRepository = (*GormPaymentRepository)(nil)
