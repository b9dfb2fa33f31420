package repository

import (
	"context"
	"errors"
	"time"

	"signals-pool/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SignalRepository defines the interface for signal data operations.
type SignalRepository interface {
	Create(ctx context.Context, signal *entity.Signal) error
	FindByID(ctx context.Context, id uint) (*entity.Signal, error)
	// FindExpiredUnresolved returns the IDs of signals due for settlement.
	FindExpiredUnresolved(ctx context.Context, now time.Time) ([]uint, error)
	// LockForSettlement re-selects one due signal under a row lock, skipping
	// rows another settler already holds. Returns ErrNotFound if the signal
	// was resolved (or locked) in the meantime. Only meaningful inside Atomic.
	LockForSettlement(ctx context.Context, id uint, now time.Time) (*entity.Signal, error)
	FindOpen(ctx context.Context, now time.Time, limit int) ([]entity.Signal, error)
	FindFirstOpen(ctx context.Context, now time.Time) (*entity.Signal, error)
	FindFirstUnresolved(ctx context.Context, now time.Time) (*entity.Signal, error)
	DeleteUnresolvedByNamePrefix(ctx context.Context, prefix string) error
	Update(ctx context.Context, signal *entity.Signal) error
}

// NewSignalRepository creates a new GORM-based signal repository.
func NewSignalRepository(db *gorm.DB) SignalRepository {
	return &signalRepository{db: db}
}

type signalRepository struct {
	db *gorm.DB
}

func (r *signalRepository) Create(ctx context.Context, signal *entity.Signal) error {
	return r.db.WithContext(ctx).Create(signal).Error
}

func (r *signalRepository) FindByID(ctx context.Context, id uint) (*entity.Signal, error) {
	var signal entity.Signal
	if err := r.db.WithContext(ctx).First(&signal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, err
	}
	return &signal, nil
}

func (r *signalRepository) FindExpiredUnresolved(ctx context.Context, now time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&entity.Signal{}).
		Where("expires_at <= ? AND is_successful IS NULL", now).
		Order("expires_at").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *signalRepository) LockForSettlement(ctx context.Context, id uint, now time.Time) (*entity.Signal, error) {
	var signal entity.Signal
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("id = ? AND expires_at <= ? AND is_successful IS NULL", id, now).
		First(&signal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, err
	}
	return &signal, nil
}

// FindOpen returns signals whose join window is still open, soonest-closing first.
func (r *signalRepository) FindOpen(ctx context.Context, now time.Time, limit int) ([]entity.Signal, error) {
	var signals []entity.Signal
	err := r.db.WithContext(ctx).
		Where("join_until > ?", now).
		Order("join_until").
		Limit(limit).
		Find(&signals).Error
	if err != nil {
		return nil, err
	}
	return signals, nil
}

func (r *signalRepository) FindFirstOpen(ctx context.Context, now time.Time) (*entity.Signal, error) {
	var signal entity.Signal
	err := r.db.WithContext(ctx).
		Where("join_until > ?", now).
		Order("join_until").
		First(&signal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, err
	}
	return &signal, nil
}

// FindFirstUnresolved returns any signal that has not yet expired, regardless
// of its join window. The auto-mode processor enrolls into these.
func (r *signalRepository) FindFirstUnresolved(ctx context.Context, now time.Time) (*entity.Signal, error) {
	var signal entity.Signal
	err := r.db.WithContext(ctx).
		Where("expires_at > ? AND is_successful IS NULL", now).
		Order("expires_at").
		First(&signal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, err
	}
	return &signal, nil
}

// DeleteUnresolvedByNamePrefix removes unresolved signals whose name starts
// with prefix. Resolved rows are kept for the audit trail.
func (r *signalRepository) DeleteUnresolvedByNamePrefix(ctx context.Context, prefix string) error {
	return r.db.WithContext(ctx).
		Where("name LIKE ? AND is_successful IS NULL", prefix+"%").
		Delete(&entity.Signal{}).Error
}

func (r *signalRepository) Update(ctx context.Context, signal *entity.Signal) error {
	return r.db.WithContext(ctx).Save(signal).Error
}
