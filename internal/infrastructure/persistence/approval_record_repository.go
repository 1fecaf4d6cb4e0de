package persistence

import (
	"context"
	"errors"

	"github.com/finledger/backend/internal/domain/billing"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormApprovalRecordRepository implements billing.ApprovalRecordRepository using GORM
type GormApprovalRecordRepository struct {
	db *gorm.DB
}

// NewGormApprovalRecordRepository creates a new GormApprovalRecordRepository
func NewGormApprovalRecordRepository(db *gorm.DB) *GormApprovalRecordRepository {
	return &GormApprovalRecordRepository{db: db}
}

// FindByIDForTenant finds an approval record for a tenant
func (r *GormApprovalRecordRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.ApprovalRecord, error) {
	var model models.ApprovalRecordModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPendingByDocument finds the open approval record for a document, if any
func (r *GormApprovalRecordRepository) FindPendingByDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*billing.ApprovalRecord, error) {
	var model models.ApprovalRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND document_id = ? AND decision = ?", tenantID, documentID, billing.ApprovalDecisionPending).
		Order("submitted_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByDocument lists all approval records for a document
func (r *GormApprovalRecordRepository) FindByDocument(ctx context.Context, tenantID, documentID uuid.UUID) ([]billing.ApprovalRecord, error) {
	var dbModels []models.ApprovalRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND document_id = ?", tenantID, documentID).
		Order("submitted_at ASC").
		Find(&dbModels).Error; err != nil {
		return nil, err
	}

	records := make([]billing.ApprovalRecord, 0, len(dbModels))
	for i := range dbModels {
		records = append(records, *dbModels[i].ToDomain())
	}
	return records, nil
}

// Save creates or updates an approval record
func (r *GormApprovalRecordRepository) Save(ctx context.Context, record *billing.ApprovalRecord) error {
	model := &models.ApprovalRecordModel{}
	model.FromDomain(record)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormApprovalRecordRepository implements the interface
var _ billing.ApprovalRecordRepository = (*GormApprovalRecordRepository)(nil)
