package repository

import (
	"context"
	"errors"

	"signals-pool/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BalanceRepository defines the interface for balance data operations.
type BalanceRepository interface {
	Create(ctx context.Context, balance *entity.Balance) error
	FindByUserID(ctx context.Context, userID uint) (*entity.Balance, error)
	// FindByUserIDForUpdate takes a row lock on the balance so concurrent
	// check-then-mutate sequences serialize. Only meaningful inside Atomic.
	FindByUserIDForUpdate(ctx context.Context, userID uint) (*entity.Balance, error)
	Update(ctx context.Context, balance *entity.Balance) error
}

// NewBalanceRepository creates a new GORM-based balance repository.
func NewBalanceRepository(db *gorm.DB) BalanceRepository {
	return &balanceRepository{db: db}
}

type balanceRepository struct {
	db *gorm.DB
}

func (r *balanceRepository) Create(ctx context.Context, balance *entity.Balance) error {
	return r.db.WithContext(ctx).Create(balance).Error
}

func (r *balanceRepository) FindByUserID(ctx context.Context, userID uint) (*entity.Balance, error) {
	return r.findByUserID(ctx, r.db, userID)
}

func (r *balanceRepository) FindByUserIDForUpdate(ctx context.Context, userID uint) (*entity.Balance, error) {
	return r.findByUserID(ctx, r.db.Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (r *balanceRepository) findByUserID(ctx context.Context, db *gorm.DB, userID uint) (*entity.Balance, error) {
	var balance entity.Balance
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, err
	}
	return &balance, nil
}

func (r *balanceRepository) Update(ctx context.Context, balance *entity.Balance) error {
	return r.db.WithContext(ctx).Save(balance).Error
}
