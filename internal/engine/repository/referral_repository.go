package repository

import (
	"context"
	"errors"

	"signals-pool/internal/entity"

	"gorm.io/gorm"
)

// ReferralRepository defines the interface for referral link records.
type ReferralRepository interface {
	Create(ctx context.Context, referral *entity.Referral) error
	FindByUserID(ctx context.Context, userID uint) (*entity.Referral, error)
	Update(ctx context.Context, referral *entity.Referral) error
}

// NewReferralRepository creates a new GORM-based referral repository.
func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

type referralRepository struct {
	db *gorm.DB
}

func (r *referralRepository) Create(ctx context.Context, referral *entity.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *referralRepository) FindByUserID(ctx context.Context, userID uint) (*entity.Referral, error) {
	var referral entity.Referral
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, err
	}
	return &referral, nil
}

func (r *referralRepository) Update(ctx context.Context, referral *entity.Referral) error {
	return r.db.WithContext(ctx).Save(referral).Error
}
