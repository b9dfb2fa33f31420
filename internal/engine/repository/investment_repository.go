package repository

import (
	"context"
	"errors"

	"signals-pool/internal/entity"

	"gorm.io/gorm"
)

// InvestmentRepository defines the interface for investment data operations.
type InvestmentRepository interface {
	// Create inserts an investment. A violation of the (signal_id, user_id)
	// unique index is returned as ErrAlreadyJoined.
	Create(ctx context.Context, investment *entity.SignalInvestment) error
	FindByUserAndSignal(ctx context.Context, userID, signalID uint) (*entity.SignalInvestment, error)
	FindByUserID(ctx context.Context, userID uint) ([]entity.SignalInvestment, error)
	FindBySignalID(ctx context.Context, signalID uint) ([]entity.SignalInvestment, error)
	Update(ctx context.Context, investment *entity.SignalInvestment) error
}

// NewInvestmentRepository creates a new GORM-based investment repository.
func NewInvestmentRepository(db *gorm.DB) InvestmentRepository {
	return &investmentRepository{db: db}
}

type investmentRepository struct {
	db *gorm.DB
}

func (r *investmentRepository) Create(ctx context.Context, investment *entity.SignalInvestment) error {
	if err := r.db.WithContext(ctx).Create(investment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return entity.ErrAlreadyJoined
		}
		return err
	}
	return nil
}

func (r *investmentRepository) FindByUserAndSignal(ctx context.Context, userID, signalID uint) (*entity.SignalInvestment, error) {
	var investment entity.SignalInvestment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND signal_id = ?", userID, signalID).
		First(&investment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, err
	}
	return &investment, nil
}

// FindByUserID retrieves a user's investments ordered by creation time.
func (r *investmentRepository) FindByUserID(ctx context.Context, userID uint) ([]entity.SignalInvestment, error) {
	var investments []entity.SignalInvestment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&investments).Error
	if err != nil {
		return nil, err
	}
	return investments, nil
}

func (r *investmentRepository) FindBySignalID(ctx context.Context, signalID uint) ([]entity.SignalInvestment, error) {
	var investments []entity.SignalInvestment
	err := r.db.WithContext(ctx).
		Where("signal_id = ?", signalID).
		Order("created_at").
		Find(&investments).Error
	if err != nil {
		return nil, err
	}
	return investments, nil
}

func (r *investmentRepository) Update(ctx context.Context, investment *entity.SignalInvestment) error {
	return r.db.WithContext(ctx).Save(investment).Error
}
