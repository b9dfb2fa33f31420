package repository

import (
	"context"

	"signals-pool/internal/entity"

	"gorm.io/gorm"
)

// TransactionRepository defines the interface for audit transaction rows.
// Rows are append-only; there is no update or delete.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	FindByUserID(ctx context.Context, userID uint) ([]entity.Transaction, error)
}

// NewTransactionRepository creates a new GORM-based transaction repository.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

type transactionRepository struct {
	db *gorm.DB
}

func (r *transactionRepository) Create(ctx context.Context, tx *entity.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *transactionRepository) FindByUserID(ctx context.Context, userID uint) ([]entity.Transaction, error) {
	var txs []entity.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}
