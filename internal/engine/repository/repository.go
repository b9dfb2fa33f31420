package repository

import (
	"context"

	"gorm.io/gorm"
)

// Registry bundles all repositories behind one unit-of-work boundary. Atomic
// runs fn against a registry whose repositories share a single database
// transaction; the checks-and-mutate sequences of the ledger are only correct
// inside such a scope.
type Registry interface {
	Users() UserRepository
	Balances() BalanceRepository
	Signals() SignalRepository
	Investments() InvestmentRepository
	Transactions() TransactionRepository
	Profits() ProfitRepository
	Referrals() ReferralRepository

	Atomic(ctx context.Context, fn func(Registry) error) error
}

// NewRegistry creates a GORM-backed registry.
func NewRegistry(db *gorm.DB) Registry {
	return &registry{
		db:           db,
		users:        NewUserRepository(db),
		balances:     NewBalanceRepository(db),
		signals:      NewSignalRepository(db),
		investments:  NewInvestmentRepository(db),
		transactions: NewTransactionRepository(db),
		profits:      NewProfitRepository(db),
		referrals:    NewReferralRepository(db),
	}
}

type registry struct {
	db           *gorm.DB
	users        UserRepository
	balances     BalanceRepository
	signals      SignalRepository
	investments  InvestmentRepository
	transactions TransactionRepository
	profits      ProfitRepository
	referrals    ReferralRepository
}

func (r *registry) Users() UserRepository                { return r.users }
func (r *registry) Balances() BalanceRepository          { return r.balances }
func (r *registry) Signals() SignalRepository            { return r.signals }
func (r *registry) Investments() InvestmentRepository    { return r.investments }
func (r *registry) Transactions() TransactionRepository  { return r.transactions }
func (r *registry) Profits() ProfitRepository            { return r.profits }
func (r *registry) Referrals() ReferralRepository        { return r.referrals }

// Atomic opens a transaction and hands fn a registry bound to it. Nested calls
// reuse the surrounding transaction through GORM's savepoint support.
func (r *registry) Atomic(ctx context.Context, fn func(Registry) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRegistry(tx))
	})
}
