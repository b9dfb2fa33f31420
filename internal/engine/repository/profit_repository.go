package repository

import (
	"context"

	"signals-pool/internal/entity"

	"gorm.io/gorm"
)

// ProfitRepository defines the interface for profit audit rows. Rows are
// write-once; there is no update or delete.
type ProfitRepository interface {
	Create(ctx context.Context, profit *entity.Profit) error
	FindByUserID(ctx context.Context, userID uint) ([]entity.Profit, error)
	CountBySignalID(ctx context.Context, signalID uint) (int64, error)
}

// NewProfitRepository creates a new GORM-based profit repository.
func NewProfitRepository(db *gorm.DB) ProfitRepository {
	return &profitRepository{db: db}
}

type profitRepository struct {
	db *gorm.DB
}

func (r *profitRepository) Create(ctx context.Context, profit *entity.Profit) error {
	return r.db.WithContext(ctx).Create(profit).Error
}

func (r *profitRepository) FindByUserID(ctx context.Context, userID uint) ([]entity.Profit, error) {
	var profits []entity.Profit
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&profits).Error
	if err != nil {
		return nil, err
	}
	return profits, nil
}

func (r *profitRepository) CountBySignalID(ctx context.Context, signalID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Profit{}).
		Where("signal_id = ?", signalID).
		Count(&count).Error
	return count, err
}
