package service

import (
	"context"
	"testing"
	"time"

	"signals-pool/internal/entity"
	"signals-pool/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAutoModeFixture(t *testing.T, clock *fixedClock, rnd *scriptedRand) (AutoModeService, *fakeStore) {
	t.Helper()
	reg, store := newFakeRegistry()
	log := newTestLogger(t)
	settings := DefaultSettings()
	ledger := NewLedgerService(reg, log, settings)
	svc := NewAutoModeService(reg, ledger, nil, log, settings, clock, rnd)
	return svc, store
}

func TestAutoModeEnable(t *testing.T) {
	t.Parallel()
	clock := newFixedClock(testNow)
	svc, store := newAutoModeFixture(t, clock, &scriptedRand{})

	userID := store.seedUser(entity.User{})
	store.seedBalance(entity.Balance{UserID: userID, Trade: 500})
	signalID := store.seedSignal(entity.Signal{
		Name:       "open",
		JoinUntil:  testNow.Add(10 * time.Minute),
		ExpiresAt:  testNow.Add(time.Hour),
		SignalCost: 150,
	})

	lockedUntil, err := svc.Enable(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(3*time.Minute), lockedUntil)

	user := store.user(userID)
	assert.True(t, user.AutoModeEnabled)
	require.True(t, user.AutoModeLockedUntil.Valid)
	assert.Equal(t, lockedUntil, user.AutoModeLockedUntil.Time)
	assert.Equal(t, 1, user.InWork)

	// Enabling joins the soonest-closing open signal on the spot.
	assert.Equal(t, 350.0, store.balance(userID).Trade)
	require.Len(t, store.investments, 1)
	inv := store.investments[0]
	assert.Equal(t, signalID, inv.SignalID)
	assert.True(t, inv.AutoMode)
	assert.Equal(t, 1, inv.InWork)
}

func TestAutoModeEnableNoOpenSignals(t *testing.T) {
	t.Parallel()
	svc, store := newAutoModeFixture(t, newFixedClock(testNow), &scriptedRand{})

	userID := store.seedUser(entity.User{})
	store.seedBalance(entity.Balance{UserID: userID, Trade: 500})

	_, err := svc.Enable(context.Background(), userID)
	assert.True(t, entity.IsValidation(err))
	assert.False(t, store.user(userID).AutoModeEnabled)
}

func TestAutoModeEnableTwice(t *testing.T) {
	t.Parallel()
	svc, store := newAutoModeFixture(t, newFixedClock(testNow), &scriptedRand{})

	userID := store.seedUser(entity.User{AutoModeEnabled: true})
	store.seedBalance(entity.Balance{UserID: userID, Trade: 500})

	_, err := svc.Enable(context.Background(), userID)
	assert.True(t, entity.IsValidation(err))
}

func TestAutoModeDisableLock(t *testing.T) {
	t.Parallel()
	clock := newFixedClock(testNow)
	svc, store := newAutoModeFixture(t, clock, &scriptedRand{})

	userID := store.seedUser(entity.User{})
	store.seedBalance(entity.Balance{UserID: userID, Trade: 500})
	store.seedSignal(entity.Signal{
		Name:       "open",
		JoinUntil:  testNow.Add(10 * time.Minute),
		ExpiresAt:  testNow.Add(time.Hour),
		SignalCost: 100,
	})

	lockedUntil, err := svc.Enable(context.Background(), userID)
	require.NoError(t, err)

	// Two minutes in: still locked, the attempt echoes the lock timestamp.
	clock.Advance(2 * time.Minute)
	echoed, err := svc.Disable(context.Background(), userID)
	assert.ErrorIs(t, err, entity.ErrAutoModeLocked)
	assert.Equal(t, lockedUntil, echoed)
	assert.True(t, store.user(userID).AutoModeEnabled)

	// Past the lock: opt-out goes through and clears the lock.
	clock.Advance(time.Minute + time.Second)
	_, err = svc.Disable(context.Background(), userID)
	require.NoError(t, err)
	user := store.user(userID)
	assert.False(t, user.AutoModeEnabled)
	assert.False(t, user.AutoModeLockedUntil.Valid)
}

func TestAutoModeDisableWhenNotEnabled(t *testing.T) {
	t.Parallel()
	svc, store := newAutoModeFixture(t, newFixedClock(testNow), &scriptedRand{})

	userID := store.seedUser(entity.User{})
	store.seedBalance(entity.Balance{UserID: userID})

	_, err := svc.Disable(context.Background(), userID)
	assert.True(t, entity.IsValidation(err))
}

func TestAutoModeProcessUsersEnrolls(t *testing.T) {
	t.Parallel()
	clock := newFixedClock(testNow)
	svc, store := newAutoModeFixture(t, clock, &scriptedRand{})

	userID := store.seedUser(entity.User{AutoModeEnabled: true})
	store.seedBalance(entity.Balance{UserID: userID, Main: 400})
	signalID := store.seedSignal(entity.Signal{
		Name:       "running",
		JoinUntil:  testNow.Add(-time.Minute),
		ExpiresAt:  testNow.Add(time.Hour),
		SignalCost: 150,
	})

	require.NoError(t, svc.ProcessUsers(context.Background()))

	// Auto enrollment spends main, not trade.
	assert.Equal(t, 250.0, store.balance(userID).Main)
	require.Len(t, store.investments, 1)
	inv := store.investments[0]
	assert.Equal(t, signalID, inv.SignalID)
	assert.True(t, inv.AutoMode)

	joins := store.transactionsOfType(common.TxTypeAutoJoin)
	require.Len(t, joins, 1)
	assert.Equal(t, -150.0, joins[0].Amount)
}

func TestAutoModeProcessUsersSynthesizesSignal(t *testing.T) {
	t.Parallel()
	clock := newFixedClock(testNow)
	svc, store := newAutoModeFixture(t, clock, &scriptedRand{})

	userID := store.seedUser(entity.User{AutoModeEnabled: true})
	store.seedBalance(entity.Balance{UserID: userID, Main: 400})

	require.NoError(t, svc.ProcessUsers(context.Background()))

	require.Len(t, store.investments, 1)
	signal := store.signal(store.investments[0].SignalID)
	assert.Equal(t, common.AutoSignalName, signal.Name)
	assert.Equal(t, testNow.Add(5*time.Minute), signal.JoinUntil)
	assert.Equal(t, testNow.Add(time.Hour), signal.ExpiresAt)
	assert.GreaterOrEqual(t, signal.BurnChance, 0.01)
	assert.LessOrEqual(t, signal.BurnChance, 0.05)
	assert.GreaterOrEqual(t, signal.ProfitPercent, 0.05)
	assert.LessOrEqual(t, signal.ProfitPercent, 0.15)
	assert.GreaterOrEqual(t, signal.SignalCost, 100.0)
	assert.LessOrEqual(t, signal.SignalCost, 200.0)
}

func TestAutoModeProcessUsersSkipsBelowMinimum(t *testing.T) {
	t.Parallel()
	svc, store := newAutoModeFixture(t, newFixedClock(testNow), &scriptedRand{})

	userID := store.seedUser(entity.User{AutoModeEnabled: true})
	store.seedBalance(entity.Balance{UserID: userID, Main: 5})

	require.NoError(t, svc.ProcessUsers(context.Background()))
	assert.Empty(t, store.investments)
	assert.Equal(t, 5.0, store.balance(userID).Main)
}

func TestAutoModeProcessUsersSkipsUnaffordableCost(t *testing.T) {
	t.Parallel()
	svc, store := newAutoModeFixture(t, newFixedClock(testNow), &scriptedRand{})

	// Above the enrollment minimum but short of the signal cost: skipped
	// without error and without partial effects.
	userID := store.seedUser(entity.User{AutoModeEnabled: true})
	store.seedBalance(entity.Balance{UserID: userID, Main: 50})
	store.seedSignal(entity.Signal{
		Name:       "expensive",
		JoinUntil:  testNow.Add(10 * time.Minute),
		ExpiresAt:  testNow.Add(time.Hour),
		SignalCost: 150,
	})

	require.NoError(t, svc.ProcessUsers(context.Background()))
	assert.Empty(t, store.investments)
	assert.Equal(t, 50.0, store.balance(userID).Main)
}

func TestAutoModeProcessUsersSkipsExistingInvestment(t *testing.T) {
	t.Parallel()
	svc, store := newAutoModeFixture(t, newFixedClock(testNow), &scriptedRand{})

	userID := store.seedUser(entity.User{AutoModeEnabled: true})
	store.seedBalance(entity.Balance{UserID: userID, Main: 400})
	signalID := store.seedSignal(entity.Signal{
		Name:       "already in",
		JoinUntil:  testNow.Add(-time.Minute),
		ExpiresAt:  testNow.Add(time.Hour),
		SignalCost: 150,
	})
	store.mu.Lock()
	store.investments = append(store.investments, &entity.SignalInvestment{
		ID: store.id(), SignalID: signalID, UserID: userID, Amount: 150, AutoMode: true,
	})
	store.mu.Unlock()

	require.NoError(t, svc.ProcessUsers(context.Background()))
	assert.Len(t, store.investments, 1)
	assert.Equal(t, 400.0, store.balance(userID).Main)
}

func TestAutoModeProcessUsersIgnoresOptedOut(t *testing.T) {
	t.Parallel()
	svc, store := newAutoModeFixture(t, newFixedClock(testNow), &scriptedRand{})

	userID := store.seedUser(entity.User{AutoModeEnabled: false})
	store.seedBalance(entity.Balance{UserID: userID, Main: 400})
	store.seedSignal(entity.Signal{
		Name:       "running",
		JoinUntil:  testNow.Add(-time.Minute),
		ExpiresAt:  testNow.Add(time.Hour),
		SignalCost: 150,
	})

	require.NoError(t, svc.ProcessUsers(context.Background()))
	assert.Empty(t, store.investments)
}
