package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/finledger/backend/internal/domain/billing"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDocumentRepository implements billing.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByIDForTenant finds a document with its lines for a tenant
func (r *GormDocumentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a document by its number for a tenant
func (r *GormDocumentRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, documentNumber string) (*billing.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		First(&model, "document_number = ? AND tenant_id = ?", documentNumber, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds documents for a tenant with filtering
func (r *GormDocumentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.DocumentFilter) ([]billing.Document, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)

	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.PartyID != nil {
		query = query.Where("party_id = ?", *filter.PartyID)
	}
	if filter.ApprovalStatus != nil {
		query = query.Where("approval_status = ?", *filter.ApprovalStatus)
	}
	if filter.PostingStatus != nil {
		query = query.Where("posting_status = ?", *filter.PostingStatus)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	var dbModels []models.DocumentModel
	if err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Order("created_at DESC").
		Find(&dbModels).Error; err != nil {
		return nil, err
	}

	documents := make([]billing.Document, 0, len(dbModels))
	for i := range dbModels {
		documents = append(documents, *dbModels[i].ToDomain())
	}
	return documents, nil
}

// Save creates or updates a document and its lines
func (r *GormDocumentRepository) Save(ctx context.Context, document *billing.Document) error {
	model := models.DocumentModelFromDomain(document)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		// Replace lines wholesale; the aggregate owns them
		if err := tx.Where("document_id = ?", model.ID).Delete(&models.DocumentLineModel{}).Error; err != nil {
			return err
		}
		if len(model.Lines) > 0 {
			if err := tx.Create(&model.Lines).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveWithLock saves with optimistic locking (version compare-and-set).
// The version check is what serializes concurrent posting attempts.
func (r *GormDocumentRepository) SaveWithLock(ctx context.Context, document *billing.Document) error {
	model := models.DocumentModelFromDomain(document)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.DocumentModel{}).
			Where("id = ? AND version = ?", model.ID, model.Version-1).
			Select("*").Omit("Lines", "created_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := tx.Where("document_id = ?", model.ID).Delete(&models.DocumentLineModel{}).Error; err != nil {
			return err
		}
		if len(model.Lines) > 0 {
			if err := tx.Create(&model.Lines).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ExistsByNumber checks if a document number exists for a tenant
func (r *GormDocumentRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, documentNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Where("tenant_id = ? AND document_number = ?", tenantID, documentNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateDocumentNumber generates a unique document number for a tenant
func (r *GormDocumentRepository) GenerateDocumentNumber(ctx context.Context, tenantID uuid.UUID, docType billing.DocumentType) (string, error) {
	prefix := "INV"
	if docType == billing.DocumentTypeVendorBill {
		prefix = "BILL"
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Where("tenant_id = ? AND type = ?", tenantID, docType).
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%06d", prefix, uuid.New().String()[:8], count+1), nil
}

// Ensure GormDocumentRepository implements the interface
var _ billing.DocumentRepository = (*GormDocumentRepository)(nil)
