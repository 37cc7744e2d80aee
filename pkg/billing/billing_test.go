package billing_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"genstudio-be/internal/model"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/internal/pkg/testdb"
	"genstudio-be/internal/repository/unitofwork"
	"genstudio-be/pkg/billing"
	"genstudio-be/pkg/events"
	"genstudio-be/pkg/ledgerevents"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	gate     *billing.Gate
	refunder *billing.Refunder
	adjuster *billing.Adjuster
	recorder *ledgerevents.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.New(t)
	log := logger.NewFileLogger(filepath.Join(t.TempDir(), "app.log"))
	recorder := ledgerevents.NewRecorder()
	publisher := ledgerevents.NewNatsPublisher(recorder, log)
	factory := unitofwork.NewRepositoryFactory(db)

	return &fixture{
		db:       db,
		gate:     billing.NewGate(factory, "dev-admin", publisher, log),
		refunder: billing.NewRefunder(factory, publisher, log),
		adjuster: billing.NewAdjuster(factory, publisher, log),
		recorder: recorder,
	}
}

func (f *fixture) ledgerFor(t *testing.T, correlationID string) []model.CreditLog {
	t.Helper()
	var logs []model.CreditLog
	require.NoError(t, f.db.Where("transaction_id = ?", correlationID).Order("amount asc").Find(&logs).Error)
	return logs
}

func TestGate_AuthorizeDebitsAndLogs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testdb.SeedUser(t, f.db, "u1", 10)

	charge, err := f.gate.Authorize(ctx, "u1", "2K", "tx-1")
	require.NoError(t, err)

	assert.True(t, charge.Billed)
	assert.Equal(t, 2, charge.Cost)
	assert.Equal(t, 8, charge.BalanceAfter)
	assert.Equal(t, 8, testdb.Balance(t, f.db, "u1"))

	logs := f.ledgerFor(t, "tx-1")
	require.Len(t, logs, 1)
	assert.Equal(t, -2, logs[0].Amount)
	assert.Equal(t, "Generation 2K [TxID: tx-1]", logs[0].Reason)
	assert.Len(t, f.recorder.OfType(events.TypeCreditsDebited), 1)
}

func TestGate_InsufficientCredits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testdb.SeedUser(t, f.db, "u1", 3)

	_, err := f.gate.Authorize(ctx, "u1", "4K", "tx-2")

	var insufficient *billing.InsufficientCreditsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 5, insufficient.Cost)
	assert.Equal(t, 3, insufficient.Balance)
	assert.Equal(t, 3, testdb.Balance(t, f.db, "u1"))
	assert.Empty(t, f.ledgerFor(t, "tx-2"))
	assert.Empty(t, f.recorder.Events())
}

func TestGate_MissingUserReadsAsZeroBalance(t *testing.T) {
	f := newFixture(t)

	_, err := f.gate.Authorize(context.Background(), "ghost", "1K", "tx-3")

	var insufficient *billing.InsufficientCreditsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Cost)
	assert.Equal(t, 0, insufficient.Balance)
}

func TestGate_BypassIdentity(t *testing.T) {
	f := newFixture(t)

	charge, err := f.gate.Authorize(context.Background(), "dev-admin", "4K", "tx-4")
	require.NoError(t, err)

	assert.False(t, charge.Billed)
	assert.Zero(t, charge.Cost)
	assert.Empty(t, f.ledgerFor(t, "tx-4"))

	require.NoError(t, f.refunder.RefundCharge(context.Background(), charge, billing.CauseNetworkError))
	assert.Empty(t, f.ledgerFor(t, "tx-4"))
}

func TestGate_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	testdb.SeedUser(t, f.db, "u1", 5)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.gate.Authorize(context.Background(), "u1", "1K", "tx-c")
			mu.Lock()
			defer mu.Unlock()
			var insufficient *billing.InsufficientCreditsError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &insufficient):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 7, rejected)
	assert.Equal(t, 0, testdb.Balance(t, f.db, "u1"))
	assert.Equal(t, -5, testdb.LedgerSum(t, f.db, "u1"))
}

func TestRefund_BackendFailureNetsToZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testdb.SeedUser(t, f.db, "u1", 10)

	charge, err := f.gate.Authorize(ctx, "u1", "2K", "tx-5")
	require.NoError(t, err)
	require.NoError(t, f.refunder.RefundCharge(ctx, charge, billing.CauseBackendFailure(500)))

	assert.Equal(t, 10, testdb.Balance(t, f.db, "u1"))
	logs := f.ledgerFor(t, "tx-5")
	require.Len(t, logs, 2)
	assert.Equal(t, -2, logs[0].Amount)
	assert.Equal(t, 2, logs[1].Amount)
	assert.Equal(t, "Refund: Backend Failure (500) [TxID: tx-5]", logs[1].Reason)
	assert.Len(t, f.recorder.OfType(events.TypeCreditsRefunded), 1)
}

func TestRefund_NonPositiveCostIsNoop(t *testing.T) {
	f := newFixture(t)
	testdb.SeedUser(t, f.db, "u1", 4)

	require.NoError(t, f.refunder.Refund(context.Background(), "u1", 0, "tx-6", billing.CauseNetworkError))

	assert.Equal(t, 4, testdb.Balance(t, f.db, "u1"))
	assert.Empty(t, f.ledgerFor(t, "tx-6"))
}

func TestRefund_MissingUserFails(t *testing.T) {
	f := newFixture(t)

	err := f.refunder.Refund(context.Background(), "ghost", 2, "tx-7", billing.CauseNetworkError)

	var billingErr *billing.BillingError
	require.True(t, errors.As(err, &billingErr))
	assert.ErrorIs(t, err, billing.ErrUserNotFound)
	assert.Empty(t, f.ledgerFor(t, "tx-7"))
}

func TestAdjuster_SetCredits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testdb.SeedUser(t, f.db, "u1", 4)

	adj, err := f.adjuster.SetCredits(ctx, "u1", 25)
	require.NoError(t, err)
	assert.Equal(t, 4, adj.OldCredits)
	assert.Equal(t, 21, adj.Amount)
	assert.Equal(t, 25, testdb.Balance(t, f.db, "u1"))
	assert.Equal(t, 21, testdb.LedgerSum(t, f.db, "u1"))

	adj, err = f.adjuster.SetCredits(ctx, "u1", 20)
	require.NoError(t, err)
	assert.Equal(t, -5, adj.Amount)

	var logs []model.CreditLog
	require.NoError(t, f.db.Where("user_id = ?", "u1").Find(&logs).Error)
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, "Admin Adjustment", l.Reason)
	}
	assert.Len(t, f.recorder.OfType(events.TypeCreditsAdjusted), 2)
}

func TestAdjuster_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.adjuster.SetCredits(context.Background(), "ghost", 10)

	assert.ErrorIs(t, err, billing.ErrUserNotFound)
}

func TestAdjuster_ConcurrentWithDebitsKeepsLedgerBalanced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testdb.SeedUser(t, f.db, "u1", 0)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if _, err := f.adjuster.SetCredits(ctx, "u1", 20+i); err != nil {
				t.Errorf("set credits: %v", err)
			}
		}(i)
		go func() {
			defer wg.Done()
			_, _ = f.gate.Authorize(ctx, "u1", "2K", "tx-mix")
		}()
	}
	wg.Wait()

	assert.Equal(t, testdb.LedgerSum(t, f.db, "u1"), testdb.Balance(t, f.db, "u1"))
}
