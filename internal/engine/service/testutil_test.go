package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"signals-pool/internal/entity"
	"signals-pool/internal/engine/repository"
	"signals-pool/pkg/logger"
	"signals-pool/pkg/utils"

	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "json")
	require.NoError(t, err)
	return log
}

func trueNullBool() sql.NullBool {
	return sql.NullBool{Bool: true, Valid: true}
}

// fixedClock is a Clock pinned to a settable instant.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(now time.Time) *fixedClock {
	return &fixedClock{now: now}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scriptedRand returns queued draws and falls back to fixed midpoints.
type scriptedRand struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
}

var _ utils.Rand = (*scriptedRand)(nil)

func (r *scriptedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.floats) == 0 {
		return 0.5
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ints) == 0 {
		return n / 2
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

// fakeStore is the in-memory backing for the fake registry. Atomic snapshots
// the whole store and restores it when fn fails, mimicking a rollback.
type fakeStore struct {
	mu           sync.Mutex
	nextID       uint
	users        map[uint]*entity.User
	balances     map[uint]*entity.Balance
	referrals    map[uint]*entity.Referral
	signals      map[uint]*entity.Signal
	investments  []*entity.SignalInvestment
	transactions []*entity.Transaction
	profits      []*entity.Profit
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[uint]*entity.User),
		balances:  make(map[uint]*entity.Balance),
		referrals: make(map[uint]*entity.Referral),
		signals:   make(map[uint]*entity.Signal),
	}
}

func (s *fakeStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) snapshot() *fakeStore {
	snap := newFakeStore()
	snap.nextID = s.nextID
	for k, v := range s.users {
		u := *v
		snap.users[k] = &u
	}
	for k, v := range s.balances {
		b := *v
		snap.balances[k] = &b
	}
	for k, v := range s.referrals {
		r := *v
		snap.referrals[k] = &r
	}
	for k, v := range s.signals {
		sig := *v
		snap.signals[k] = &sig
	}
	for _, v := range s.investments {
		inv := *v
		snap.investments = append(snap.investments, &inv)
	}
	for _, v := range s.transactions {
		tx := *v
		snap.transactions = append(snap.transactions, &tx)
	}
	for _, v := range s.profits {
		p := *v
		snap.profits = append(snap.profits, &p)
	}
	return snap
}

func (s *fakeStore) restore(snap *fakeStore) {
	s.nextID = snap.nextID
	s.users = snap.users
	s.balances = snap.balances
	s.referrals = snap.referrals
	s.signals = snap.signals
	s.investments = snap.investments
	s.transactions = snap.transactions
	s.profits = snap.profits
}

// Seeding helpers. Each returns the assigned ID.

func (s *fakeStore) seedUser(u entity.User) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.id()
	s.users[u.ID] = &u
	return u.ID
}

func (s *fakeStore) seedBalance(b entity.Balance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	s.balances[b.UserID] = &b
}

func (s *fakeStore) seedReferral(r entity.Referral) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	s.referrals[r.UserID] = &r
}

func (s *fakeStore) seedSignal(sig entity.Signal) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig.ID = s.id()
	s.signals[sig.ID] = &sig
	return sig.ID
}

func (s *fakeStore) balance(userID uint) entity.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.balances[userID]
}

func (s *fakeStore) user(id uint) entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *fakeStore) signal(id uint) entity.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.signals[id]
}

func (s *fakeStore) transactionsOfType(txType string) []entity.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Transaction
	for _, tx := range s.transactions {
		if tx.Type == txType {
			out = append(out, *tx)
		}
	}
	return out
}

// fakeRegistry implements repository.Registry over a fakeStore.
type fakeRegistry struct {
	store *fakeStore
}

var _ repository.Registry = (*fakeRegistry)(nil)

func newFakeRegistry() (*fakeRegistry, *fakeStore) {
	store := newFakeStore()
	return &fakeRegistry{store: store}, store
}

func (r *fakeRegistry) Users() repository.UserRepository               { return &fakeUserRepo{r.store} }
func (r *fakeRegistry) Balances() repository.BalanceRepository         { return &fakeBalanceRepo{r.store} }
func (r *fakeRegistry) Signals() repository.SignalRepository           { return &fakeSignalRepo{r.store} }
func (r *fakeRegistry) Investments() repository.InvestmentRepository   { return &fakeInvestmentRepo{r.store} }
func (r *fakeRegistry) Transactions() repository.TransactionRepository { return &fakeTransactionRepo{r.store} }
func (r *fakeRegistry) Profits() repository.ProfitRepository           { return &fakeProfitRepo{r.store} }
func (r *fakeRegistry) Referrals() repository.ReferralRepository       { return &fakeReferralRepo{r.store} }

func (r *fakeRegistry) Atomic(ctx context.Context, fn func(repository.Registry) error) error {
	r.store.mu.Lock()
	snap := r.store.snapshot()
	r.store.mu.Unlock()
	if err := fn(&txRegistry{fakeRegistry{store: r.store}}); err != nil {
		r.store.mu.Lock()
		r.store.restore(snap)
		r.store.mu.Unlock()
		return err
	}
	return nil
}

// txRegistry is the in-transaction view. Nested Atomic calls run in the
// surrounding scope, like GORM savepoint reuse.
type txRegistry struct {
	fakeRegistry
}

func (r *txRegistry) Atomic(ctx context.Context, fn func(repository.Registry) error) error {
	return fn(r)
}

type fakeUserRepo struct{ store *fakeStore }

func (f *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	user.ID = f.store.id()
	cp := *user
	f.store.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	u, ok := f.store.users[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) FindAutoModeEnabled(ctx context.Context) ([]entity.User, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []entity.User
	for _, u := range f.store.users {
		if u.AutoModeEnabled {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	cp := *user
	f.store.users[user.ID] = &cp
	return nil
}

type fakeBalanceRepo struct{ store *fakeStore }

func (f *fakeBalanceRepo) Create(ctx context.Context, balance *entity.Balance) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	balance.ID = f.store.id()
	cp := *balance
	f.store.balances[balance.UserID] = &cp
	return nil
}

func (f *fakeBalanceRepo) FindByUserID(ctx context.Context, userID uint) (*entity.Balance, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	b, ok := f.store.balances[userID]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBalanceRepo) FindByUserIDForUpdate(ctx context.Context, userID uint) (*entity.Balance, error) {
	return f.FindByUserID(ctx, userID)
}

func (f *fakeBalanceRepo) Update(ctx context.Context, balance *entity.Balance) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	cp := *balance
	f.store.balances[balance.UserID] = &cp
	return nil
}

type fakeSignalRepo struct{ store *fakeStore }

func (f *fakeSignalRepo) Create(ctx context.Context, signal *entity.Signal) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	signal.ID = f.store.id()
	cp := *signal
	f.store.signals[signal.ID] = &cp
	return nil
}

func (f *fakeSignalRepo) FindByID(ctx context.Context, id uint) (*entity.Signal, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	s, ok := f.store.signals[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSignalRepo) FindExpiredUnresolved(ctx context.Context, now time.Time) ([]uint, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var due []*entity.Signal
	for _, s := range f.store.signals {
		if !s.ExpiresAt.After(now) && !s.IsSuccessful.Valid {
			due = append(due, s)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
	ids := make([]uint, 0, len(due))
	for _, s := range due {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func (f *fakeSignalRepo) LockForSettlement(ctx context.Context, id uint, now time.Time) (*entity.Signal, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	s, ok := f.store.signals[id]
	if !ok || s.ExpiresAt.After(now) || s.IsSuccessful.Valid {
		return nil, entity.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSignalRepo) FindOpen(ctx context.Context, now time.Time, limit int) ([]entity.Signal, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var open []entity.Signal
	for _, s := range f.store.signals {
		if s.JoinUntil.After(now) {
			open = append(open, *s)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].JoinUntil.Before(open[j].JoinUntil) })
	if len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

func (f *fakeSignalRepo) FindFirstOpen(ctx context.Context, now time.Time) (*entity.Signal, error) {
	open, err := f.FindOpen(ctx, now, 1)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, entity.ErrNotFound
	}
	return &open[0], nil
}

func (f *fakeSignalRepo) FindFirstUnresolved(ctx context.Context, now time.Time) (*entity.Signal, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var candidates []entity.Signal
	for _, s := range f.store.signals {
		if s.ExpiresAt.After(now) && !s.IsSuccessful.Valid {
			candidates = append(candidates, *s)
		}
	}
	if len(candidates) == 0 {
		return nil, entity.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ExpiresAt.Before(candidates[j].ExpiresAt) })
	return &candidates[0], nil
}

func (f *fakeSignalRepo) DeleteUnresolvedByNamePrefix(ctx context.Context, prefix string) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for id, s := range f.store.signals {
		if strings.HasPrefix(s.Name, prefix) && !s.IsSuccessful.Valid {
			delete(f.store.signals, id)
		}
	}
	return nil
}

func (f *fakeSignalRepo) Update(ctx context.Context, signal *entity.Signal) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	cp := *signal
	f.store.signals[signal.ID] = &cp
	return nil
}

type fakeInvestmentRepo struct{ store *fakeStore }

func (f *fakeInvestmentRepo) Create(ctx context.Context, investment *entity.SignalInvestment) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, inv := range f.store.investments {
		if inv.SignalID == investment.SignalID && inv.UserID == investment.UserID {
			return entity.ErrAlreadyJoined
		}
	}
	investment.ID = f.store.id()
	investment.CreatedAt = time.Now()
	cp := *investment
	f.store.investments = append(f.store.investments, &cp)
	return nil
}

func (f *fakeInvestmentRepo) FindByUserAndSignal(ctx context.Context, userID, signalID uint) (*entity.SignalInvestment, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, inv := range f.store.investments {
		if inv.UserID == userID && inv.SignalID == signalID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (f *fakeInvestmentRepo) FindByUserID(ctx context.Context, userID uint) ([]entity.SignalInvestment, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []entity.SignalInvestment
	for _, inv := range f.store.investments {
		if inv.UserID == userID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvestmentRepo) FindBySignalID(ctx context.Context, signalID uint) ([]entity.SignalInvestment, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []entity.SignalInvestment
	for _, inv := range f.store.investments {
		if inv.SignalID == signalID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvestmentRepo) Update(ctx context.Context, investment *entity.SignalInvestment) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for i, inv := range f.store.investments {
		if inv.ID == investment.ID {
			cp := *investment
			f.store.investments[i] = &cp
			return nil
		}
	}
	return entity.ErrNotFound
}

type fakeTransactionRepo struct{ store *fakeStore }

func (f *fakeTransactionRepo) Create(ctx context.Context, tx *entity.Transaction) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	tx.ID = f.store.id()
	tx.CreatedAt = time.Now()
	cp := *tx
	f.store.transactions = append(f.store.transactions, &cp)
	return nil
}

func (f *fakeTransactionRepo) FindByUserID(ctx context.Context, userID uint) ([]entity.Transaction, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []entity.Transaction
	for _, tx := range f.store.transactions {
		if tx.UserID == userID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

type fakeProfitRepo struct{ store *fakeStore }

func (f *fakeProfitRepo) Create(ctx context.Context, profit *entity.Profit) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	profit.ID = f.store.id()
	profit.CreatedAt = time.Now()
	cp := *profit
	f.store.profits = append(f.store.profits, &cp)
	return nil
}

func (f *fakeProfitRepo) FindByUserID(ctx context.Context, userID uint) ([]entity.Profit, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []entity.Profit
	for _, p := range f.store.profits {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProfitRepo) CountBySignalID(ctx context.Context, signalID uint) (int64, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var count int64
	for _, p := range f.store.profits {
		if p.SignalID == signalID {
			count++
		}
	}
	return count, nil
}

type fakeReferralRepo struct{ store *fakeStore }

func (f *fakeReferralRepo) Create(ctx context.Context, referral *entity.Referral) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	referral.ID = f.store.id()
	cp := *referral
	f.store.referrals[referral.UserID] = &cp
	return nil
}

func (f *fakeReferralRepo) FindByUserID(ctx context.Context, userID uint) (*entity.Referral, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	r, ok := f.store.referrals[userID]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReferralRepo) Update(ctx context.Context, referral *entity.Referral) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	cp := *referral
	f.store.referrals[referral.UserID] = &cp
	return nil
}
