package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormJournalEntryRepository implements ledger.JournalEntryRepository
// using GORM. The ledger is append-only: Save only ever inserts.
type GormJournalEntryRepository struct {
	db *gorm.DB
}

// NewGormJournalEntryRepository creates a new GormJournalEntryRepository
func NewGormJournalEntryRepository(db *gorm.DB) *GormJournalEntryRepository {
	return &GormJournalEntryRepository{db: db}
}

// FindByIDForTenant finds a journal entry with its lines for a tenant
func (r *GormJournalEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.JournalEntry, error) {
	var model models.JournalEntryModel
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

// FindBySource finds the entry posted from a source document, if any.
// The unique (tenant, source_type, source_id) index guarantees at most
// one row here.
func (r *GormJournalEntryRepository) FindBySource(ctx context.Context, tenantID uuid.UUID, sourceType ledger.JournalSourceType, sourceID uuid.UUID) (*ledger.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		First(&model, "tenant_id = ? AND source_type = ? AND source_id = ?", tenantID, sourceType, sourceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists journal entries for a tenant, most recent first
func (r *GormJournalEntryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]ledger.JournalEntry, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var dbModels []models.JournalEntryModel
	if err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Order("entry_date DESC, entry_number DESC").
		Find(&dbModels).Error; err != nil {
		return nil, err
	}

	entries := make([]ledger.JournalEntry, 0, len(dbModels))
	for i := range dbModels {
		entries = append(entries, *dbModels[i].ToDomain())
	}
	return entries, nil
}

// Save persists a new journal entry and its lines
func (r *GormJournalEntryRepository) Save(ctx context.Context, entry *ledger.JournalEntry) error {
	model := models.JournalEntryModelFromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// GenerateEntryNumber generates a unique entry number for a tenant
func (r *GormJournalEntryRepository) GenerateEntryNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.JournalEntryModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("JE-%s-%06d", uuid.New().String()[:8], count+1), nil
}

// Ensure GormJournalEntryRepository implements the interface
var _ ledger.JournalEntryRepository = (*GormJournalEntryRepository)(nil)
