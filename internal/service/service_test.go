package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-inventory-ledger/internal/event"
	"go-inventory-ledger/internal/model"
	"go-inventory-ledger/internal/repository"
	"go-inventory-ledger/internal/testutil"

	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *recordingObserver) ObserveAdjustment(txType, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[string]int{}
	}
	o.outcomes[txType+"/"+result]++
}

func (o *recordingObserver) count(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcomes[key]
}

type fixture struct {
	db           *gorm.DB
	itemRepo     repository.ItemRepository
	categoryRepo repository.CategoryRepository
	ledgerRepo   repository.TransactionRepository
	items        ItemService
	ledger       LedgerService
	categories   CategoryService
	publisher    *recordingPublisher
	observer     *recordingObserver
	user         *model.User
	category     *model.Category
	opts         []Option
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	f := &fixture{
		db:           db,
		itemRepo:     repository.NewItemRepo(db),
		categoryRepo: repository.NewCategoryRepo(db),
		ledgerRepo:   repository.NewTransactionRepo(db),
		publisher:    &recordingPublisher{},
		observer:     &recordingObserver{},
	}
	f.opts = []Option{
		WithClock(testutil.Clock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))),
		WithPublisher(f.publisher),
		WithAdjustmentObserver(f.observer),
	}
	f.items = NewItemService(f.itemRepo, f.categoryRepo, f.ledgerRepo, db, f.opts...)
	f.ledger = NewLedgerService(f.itemRepo, f.ledgerRepo, db, f.opts...)
	f.categories = NewCategoryService(f.categoryRepo, f.itemRepo, db, f.opts...)
	f.user = testutil.SeedUser(t, db, "manager", model.RoleManager)
	f.category = testutil.SeedCategory(t, db, "Hardware")
	return f
}

func intPtr(v int) *int { return &v }

func adjust(txType model.TransactionType, quantity int) *AdjustQuantityRequest {
	return &AdjustQuantityRequest{Type: txType, Quantity: intPtr(quantity)}
}
