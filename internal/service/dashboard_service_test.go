package service

import (
	"context"
	"testing"

	"go-stock-ledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDashboardFixture() (*stubTransactions, *memStore, *countingCache, DashboardService) {
	store := newMemStore()
	tx := &stubTransactions{memStore: store}
	c := newCountingCache()
	return tx, store, c, NewDashboardService(tx, stubProducts{store}, c)
}

func TestDailyNetChartReshapesAndCaches(t *testing.T) {
	tx, _, c, svc := newDashboardFixture()
	tx.daily = []model.DailyKindTotal{
		{Date: "2025-01-01", Kind: model.TxIn, Total: 10},
		{Date: "2025-01-01", Kind: model.TxOut, Total: 3},
		{Date: "2025-01-02", Kind: model.TxIn, Total: 5},
	}

	chart, err := svc.DailyNetChart(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-01", "2025-01-02"}, chart.Labels)
	assert.Equal(t, []int64{10, 5}, chart.In)
	assert.Equal(t, []int64{3, 0}, chart.Out)

	_, err = svc.DailyNetChart(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, tx.calls, "second call must be served from cache")

	c.Invalidate(context.Background())
	_, err = svc.DailyNetChart(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, tx.calls)
}

func TestDailyNetChartEmpty(t *testing.T) {
	_, _, _, svc := newDashboardFixture()

	chart, err := svc.DailyNetChart(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, chart.Labels)
	assert.NotNil(t, chart.Labels)
}

func TestDailyNetChartRangeValidation(t *testing.T) {
	_, _, _, svc := newDashboardFixture()

	_, err := svc.DailyNetChart(context.Background(), "2025-02-01", "2025-01-01")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = svc.DailyNetChart(context.Background(), "yesterday", "")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = svc.DailyNetChart(context.Background(), "2025-01-01", "2025-01-01")
	assert.NoError(t, err)
}

func TestStockSnapshot(t *testing.T) {
	_, store, _, svc := newDashboardFixture()
	store.seed("Nut", "N-1", 2)
	store.seed("Bolt", "B-1", 0)
	store.seed("Anchor", "A-1", 5)

	slices, err := svc.StockSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.StockSlice{{Name: "Anchor", Stock: 5}, {Name: "Nut", Stock: 2}}, slices)
}

// racingProducts runs during between reading the snapshot and returning it.
type racingProducts struct {
	stubProducts
	during func()
}

func (r racingProducts) StockSnapshot(ctx context.Context) ([]model.StockSlice, error) {
	slices, err := r.stubProducts.StockSnapshot(ctx)
	if r.during != nil {
		r.during()
	}
	return slices, err
}

func TestStockSnapshotNotServedStaleAfterConcurrentWrite(t *testing.T) {
	ledger := newLedgerFixture()
	p := ledger.store.seed("Bolt", "B-1", 5)

	products := &racingProducts{stubProducts: stubProducts{ledger.store}}
	svc := NewDashboardService(&stubTransactions{memStore: ledger.store}, products, ledger.cache)

	products.during = func() {
		products.during = nil
		require.NoError(t, ledger.svc.PostTransaction(context.Background(), txReq(p.ID, "out", 5, "2025-01-01"), tester))
	}

	first, err := svc.StockSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.StockSlice{{Name: "Bolt", Stock: 5}}, first)
	require.Equal(t, 0, ledger.store.stock(p.ID))

	after, err := svc.StockSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, after)
}
