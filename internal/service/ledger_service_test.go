package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"go-inventory-ledger/internal/event"
	"go-inventory-ledger/internal/model"
	"go-inventory-ledger/internal/repository"
	"go-inventory-ledger/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAdjustQuantity_OutThenInsufficient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := testutil.SeedItem(t, f.db, f.category, "BOLT-1", 20, 10)

	updated, entry, err := f.ledger.AdjustQuantity(ctx, item.ID, adjust(model.TxOut, 15), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)
	assert.True(t, updated.IsLowStock())
	assert.Equal(t, 20, entry.PreviousQuantity)
	assert.Equal(t, 5, entry.NewQuantity)
	assert.Equal(t, 15, entry.Quantity)
	assert.Equal(t, f.user.ID, entry.PerformedBy)
	if assert.NotNil(t, updated.UpdatedByUser) {
		assert.Equal(t, "manager", updated.UpdatedByUser.Username)
	}
	if assert.NotNil(t, updated.Category) {
		assert.Equal(t, "Hardware", updated.Category.Name)
	}

	_, _, err = f.ledger.AdjustQuantity(ctx, item.ID, adjust(model.TxOut, 10), f.user.ID)
	assert.ErrorIs(t, err, ErrInsufficientQuantity)

	current, err := f.items.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, current.Quantity)

	history, err := f.ledger.ListForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	assert.Equal(t, 1, f.observer.count("out/success"))
	assert.Equal(t, 1, f.observer.count("out/insufficient_quantity"))
}

func TestAdjustQuantity_AbsoluteAdjustmentRecordsInputQuantity(t *testing.T) {
	f := newFixture(t)
	item := testutil.SeedItem(t, f.db, f.category, "BOLT-2", 5, 10)

	updated, entry, err := f.ledger.AdjustQuantity(context.Background(), item.ID, adjust(model.TxAdjustment, 50), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, updated.Quantity)
	assert.False(t, updated.IsLowStock())
	assert.Equal(t, 5, entry.PreviousQuantity)
	assert.Equal(t, 50, entry.NewQuantity)
	assert.Equal(t, 50, entry.Quantity)
}

func TestAdjustQuantity_Validation(t *testing.T) {
	f := newFixture(t)
	item := testutil.SeedItem(t, f.db, f.category, "BOLT-3", 5, 1)
	ctx := context.Background()

	cases := map[string]*AdjustQuantityRequest{
		"unknown type":     adjust("transfer", 1),
		"negative":         adjust(model.TxIn, -1),
		"missing quantity": {Type: model.TxIn},
		"long reason":      {Type: model.TxIn, Quantity: intPtr(1), Reason: strings.Repeat("x", 201)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := f.ledger.AdjustQuantity(ctx, item.ID, req, f.user.ID)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, _, err := f.ledger.AdjustQuantity(ctx, uuid.New(), adjust(model.TxIn, 1), f.user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdjustQuantity_ZeroIsRecorded(t *testing.T) {
	f := newFixture(t)
	item := testutil.SeedItem(t, f.db, f.category, "BOLT-4", 7, 1)

	updated, entry, err := f.ledger.AdjustQuantity(context.Background(), item.ID, adjust(model.TxAdjustment, 0), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)
	assert.Equal(t, 7, entry.PreviousQuantity)
	assert.Equal(t, 0, entry.NewQuantity)
}

func TestAdjustQuantity_HistoryChains(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := testutil.SeedItem(t, f.db, f.category, "NUT-1", 10, 2)

	moves := []*AdjustQuantityRequest{
		adjust(model.TxIn, 5),
		adjust(model.TxOut, 3),
		adjust(model.TxAdjustment, 40),
		adjust(model.TxOut, 40),
		adjust(model.TxIn, 1),
	}
	for _, m := range moves {
		_, _, err := f.ledger.AdjustQuantity(ctx, item.ID, m, f.user.ID)
		require.NoError(t, err)
	}

	history, err := f.ledger.ListForItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, history, len(moves))

	// newest first: each entry starts where the one below it ended
	for i := 0; i < len(history)-1; i++ {
		assert.Equal(t, history[i+1].NewQuantity, history[i].PreviousQuantity)
		assert.True(t, history[i].CreatedAt.After(history[i+1].CreatedAt))
	}
	assert.Equal(t, 10, history[len(history)-1].PreviousQuantity)

	current, err := f.items.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, history[0].NewQuantity, current.Quantity)
	assert.Equal(t, 1, current.Quantity)
}

func TestAdjustQuantity_ConcurrentOutsDoNotOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := testutil.SeedItem(t, f.db, f.category, "RACE-1", 15, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = f.ledger.AdjustQuantity(ctx, item.ID, adjust(model.TxOut, 10), f.user.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientQuantity)
	}
	assert.Equal(t, 1, succeeded)

	current, err := f.items.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, current.Quantity)

	history, err := f.ledger.ListForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

type failingLedgerRepo struct {
	repository.TransactionRepository
}

func (failingLedgerRepo) Create(*gorm.DB, *model.Transaction) error {
	return errors.New("disk full")
}

func TestAdjustQuantity_FailedAppendRollsBackItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := testutil.SeedItem(t, f.db, f.category, "ATOM-1", 9, 1)

	ledger := NewLedgerService(f.itemRepo, failingLedgerRepo{f.ledgerRepo}, f.db, f.opts...)
	_, _, err := ledger.AdjustQuantity(ctx, item.ID, adjust(model.TxIn, 1), f.user.ID)
	require.Error(t, err)

	current, err := f.items.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, current.Quantity)
	assert.Equal(t, int64(0), current.Version)
	assert.Empty(t, f.publisher.types())
}

func TestAdjustQuantity_CanceledContextChangesNothing(t *testing.T) {
	f := newFixture(t)
	item := testutil.SeedItem(t, f.db, f.category, "CTX-1", 9, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := f.ledger.AdjustQuantity(ctx, item.ID, adjust(model.TxOut, 1), f.user.ID)
	require.Error(t, err)

	current, err := f.items.Get(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, current.Quantity)

	history, err := f.ledger.ListForItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

type conflictingItemRepo struct {
	repository.ItemRepository
	conflicts int
	attempts  int
}

func (r *conflictingItemRepo) UpdateQuantity(tx *gorm.DB, id uuid.UUID, version int64, quantity int, by uuid.UUID, at time.Time) error {
	r.attempts++
	if r.conflicts > 0 {
		r.conflicts--
		return repository.ErrVersionConflict
	}
	return r.ItemRepository.UpdateQuantity(tx, id, version, quantity, by, at)
}

func TestAdjustQuantity_RetriesVersionConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := testutil.SeedItem(t, f.db, f.category, "VER-1", 3, 1)

	repo := &conflictingItemRepo{ItemRepository: f.itemRepo, conflicts: maxWriteAttempts - 1}
	ledger := NewLedgerService(repo, f.ledgerRepo, f.db, f.opts...)

	updated, _, err := ledger.AdjustQuantity(ctx, item.ID, adjust(model.TxIn, 2), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)
	assert.Equal(t, maxWriteAttempts, repo.attempts)

	history, err := f.ledger.ListForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "rolled back attempts leave no entries")
}

func TestAdjustQuantity_GivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newFixture(t)
	item := testutil.SeedItem(t, f.db, f.category, "VER-2", 3, 1)

	repo := &conflictingItemRepo{ItemRepository: f.itemRepo, conflicts: maxWriteAttempts}
	ledger := NewLedgerService(repo, f.ledgerRepo, f.db, f.opts...)

	_, _, err := ledger.AdjustQuantity(context.Background(), item.ID, adjust(model.TxIn, 2), f.user.ID)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, f.observer.count("in/conflict"))
}

func TestAdjustQuantity_PublishesAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := testutil.SeedItem(t, f.db, f.category, "EVT-1", 20, 10)

	_, entry, err := f.ledger.AdjustQuantity(ctx, item.ID, adjust(model.TxOut, 5), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, []event.Type{event.QuantityAdjusted}, f.publisher.types())
	require.NotNil(t, f.publisher.events[0].TransactionID)
	assert.Equal(t, entry.ID, *f.publisher.events[0].TransactionID)

	f.publisher.reset()
	_, _, err = f.ledger.AdjustQuantity(ctx, item.ID, adjust(model.TxOut, 5), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, []event.Type{event.QuantityAdjusted, event.StockLow}, f.publisher.types())

	f.publisher.reset()
	_, _, err = f.ledger.AdjustQuantity(ctx, item.ID, adjust(model.TxOut, 50), f.user.ID)
	require.Error(t, err)
	assert.Empty(t, f.publisher.types())
}

func TestLedgerList_PagesAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.SeedItem(t, f.db, f.category, "PG-A", 0, 1)
	b := testutil.SeedItem(t, f.db, f.category, "PG-B", 0, 1)

	for i := 0; i < 7; i++ {
		target := a.ID
		if i%3 == 0 {
			target = b.ID
		}
		_, _, err := f.ledger.AdjustQuantity(ctx, target, adjust(model.TxIn, i+1), f.user.ID)
		require.NoError(t, err)
	}

	var all []model.Transaction
	for page := 1; ; page++ {
		result, err := f.ledger.List(ctx, TransactionQuery{Page: page, Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(7), result.Pagination.Total)
		assert.Equal(t, 3, result.Pagination.TotalPages)
		if len(result.Transactions) == 0 {
			break
		}
		all = append(all, result.Transactions...)
	}
	require.Len(t, all, 7)
	for i := 0; i < len(all)-1; i++ {
		assert.True(t, all[i].CreatedAt.After(all[i+1].CreatedAt))
	}

	onlyB, err := f.ledger.List(ctx, TransactionQuery{ItemID: &b.ID, Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(3), onlyB.Pagination.Total)
	for _, e := range onlyB.Transactions {
		assert.Equal(t, b.ID, e.ItemID)
	}

	_, err = f.ledger.List(ctx, TransactionQuery{Page: 0, Limit: 20})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.ledger.List(ctx, TransactionQuery{Page: 1, Limit: 0})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLedgerSurvivesItemDeletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := testutil.SeedItem(t, f.db, f.category, "GONE-1", 4, 1)

	_, _, err := f.ledger.AdjustQuantity(ctx, item.ID, adjust(model.TxIn, 1), f.user.ID)
	require.NoError(t, err)
	require.NoError(t, f.items.Delete(ctx, item.ID, f.user.ID))

	history, err := f.ledger.ListForItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	page, err := f.ledger.List(ctx, TransactionQuery{ItemID: &item.ID, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Nil(t, page.Transactions[0].Item)
	assert.Nil(t, page.Transactions[0].ToResponse().Item)
}

func TestAdjustmentResult(t *testing.T) {
	assert.Equal(t, "success", adjustmentResult(nil))
	assert.Equal(t, "not_found", adjustmentResult(notFound(gorm.ErrRecordNotFound, "item")))
	assert.Equal(t, "invalid", adjustmentResult(validationErrorf("bad")))
	assert.Equal(t, "error", adjustmentResult(errors.New("boom")))
}

func TestAdjustQuantity_InThatWouldOverflowIsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := testutil.SeedItem(t, f.db, f.category, "OV-1", 5, 1)

	_, _, err := f.ledger.AdjustQuantity(ctx, item.ID, adjust(model.TxIn, math.MaxInt), f.user.ID)
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrInsufficientQuantity)

	stored, err := f.itemRepo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Quantity)

	entries, err := f.ledger.ListForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, _, err = f.ledger.AdjustQuantity(ctx, item.ID, adjust(model.TxIn, math.MaxInt-5), f.user.ID)
	assert.NoError(t, err)
}

func TestAdjustQuantity_NilRequestIsInvalid(t *testing.T) {
	f := newFixture(t)
	item := testutil.SeedItem(t, f.db, f.category, "NIL-1", 5, 1)

	_, _, err := f.ledger.AdjustQuantity(context.Background(), item.ID, nil, f.user.ID)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 1, f.observer.count("/invalid"))
}
