package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormExchangeRateRepository implements valueobject.RateProvider backed
// by the exchange_rates table. RateFor selects the most recent rate of
// the requested type published on or before the requested date.
type GormExchangeRateRepository struct {
	db *gorm.DB
}

// NewGormExchangeRateRepository creates a new GormExchangeRateRepository
func NewGormExchangeRateRepository(db *gorm.DB) *GormExchangeRateRepository {
	return &GormExchangeRateRepository{db: db}
}

// RateFor returns the best-matching exchange rate for a currency pair
func (r *GormExchangeRateRepository) RateFor(ctx context.Context, from, to valueobject.Currency, asOf time.Time, rateType valueobject.RateType) (valueobject.ExchangeRate, error) {
	if from == to {
		return valueobject.IdentityRate(from), nil
	}

	var model models.ExchangeRateModel
	if err := r.db.WithContext(ctx).
		Where("from_currency = ? AND to_currency = ? AND type = ? AND as_of <= ?", from, to, rateType, asOf).
		Order("as_of DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return valueobject.ExchangeRate{}, fmt.Errorf("no %s rate published for %s/%s as of %s", rateType, from, to, asOf.Format("2006-01-02"))
		}
		return valueobject.ExchangeRate{}, err
	}
	return model.ToDomain(), nil
}

// SaveRate stores a published rate, replacing any rate already recorded
// for the same pair, type and date.
func (r *GormExchangeRateRepository) SaveRate(ctx context.Context, rate valueobject.ExchangeRate) error {
	model := &models.ExchangeRateModel{}
	model.FromDomain(rate)
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_currency"}, {Name: "to_currency"}, {Name: "type"}, {Name: "as_of"}},
			DoUpdates: clause.AssignmentColumns([]string{"rate", "updated_at"}),
		}).
		Create(model).Error
}

// Ensure GormExchangeRateRepository implements the interface
var _ valueobject.RateProvider = (*GormExchangeRateRepository)(nil)
