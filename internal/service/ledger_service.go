package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go-inventory-ledger/internal/event"
	"go-inventory-ledger/internal/model"
	"go-inventory-ledger/internal/repository"
	"go-inventory-ledger/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdjustQuantityRequest describes one stock movement. For "adjustment",
// Quantity is the new absolute stock level.
type AdjustQuantityRequest struct {
	Type      model.TransactionType `json:"type" validate:"required,oneof=in out adjustment"`
	Quantity  *int                  `json:"quantity" validate:"required,gte=0"`
	Reason    string                `json:"reason" validate:"max=200"`
	Reference string                `json:"reference" validate:"max=100"`
}

// TransactionQuery selects one page of the ledger, optionally for one item.
type TransactionQuery struct {
	ItemID *uuid.UUID
	Page   int
	Limit  int
}

type TransactionPage struct {
	Transactions []model.Transaction `json:"transactions"`
	Pagination   PageMeta            `json:"pagination"`
}

type LedgerService interface {
	AdjustQuantity(ctx context.Context, itemID uuid.UUID, req *AdjustQuantityRequest, callerID uuid.UUID) (*model.Item, *model.Transaction, error)
	List(ctx context.Context, q TransactionQuery) (*TransactionPage, error)
	ListForItem(ctx context.Context, itemID uuid.UUID) ([]model.Transaction, error)
}

type ledgerService struct {
	itemRepo   repository.ItemRepository
	ledgerRepo repository.TransactionRepository
	db         *gorm.DB
	opts       options
}

func NewLedgerService(iRepo repository.ItemRepository, tRepo repository.TransactionRepository, db *gorm.DB, opts ...Option) LedgerService {
	return &ledgerService{
		itemRepo:   iRepo,
		ledgerRepo: tRepo,
		db:         db,
		opts:       buildOptions(opts),
	}
}

// adjustmentResult is the metrics label for an AdjustQuantity outcome.
func adjustmentResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientQuantity):
		return "insufficient_quantity"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

// AdjustQuantity applies one movement to the item and appends the matching
// ledger entry. Both writes commit together or not at all; a movement that
// would take stock below zero changes nothing.
func (s *ledgerService) AdjustQuantity(ctx context.Context, itemID uuid.UUID, req *AdjustQuantityRequest, callerID uuid.UUID) (*model.Item, *model.Transaction, error) {
	item, entry, err := s.adjust(ctx, itemID, req, callerID)
	var txType string
	if req != nil {
		txType = string(req.Type)
	}
	s.opts.observer.ObserveAdjustment(txType, adjustmentResult(err))
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx).
		Str("item_id", itemID.String()).
		Str("type", string(entry.Type)).
		Int("previous_quantity", entry.PreviousQuantity).
		Int("new_quantity", entry.NewQuantity).
		Msg("quantity adjusted")

	events := []event.Event{event.ForEntry(item, entry)}
	if item.Status == model.ItemActive && item.IsLowStock() {
		events = append(events, event.ForItem(event.StockLow, item, callerID, entry.CreatedAt))
	}
	event.Dispatch(ctx, s.opts.publisher, events...)

	return item, entry, nil
}

func (s *ledgerService) adjust(ctx context.Context, itemID uuid.UUID, req *AdjustQuantityRequest, callerID uuid.UUID) (*model.Item, *model.Transaction, error) {
	if req == nil {
		return nil, nil, validationErrorf("adjustment is required")
	}
	if err := validate(req); err != nil {
		return nil, nil, err
	}
	quantity := *req.Quantity

	var entry *model.Transaction
	err := writeItem(ctx, s.opts.locker, s.db, itemID, func(tx *gorm.DB) error {
		item, err := s.itemRepo.FindForUpdate(tx, itemID)
		if err != nil {
			return notFound(err, "item "+itemID.String())
		}

		previous := item.Quantity
		if req.Type == model.TxIn && quantity > math.MaxInt-previous {
			return validationErrorf("item %s cannot hold %d more units", item.SKU, quantity)
		}
		next := req.Type.Apply(previous, quantity)
		if next < 0 {
			return fmt.Errorf("%w: item %s has %d, cannot remove %d", ErrInsufficientQuantity, item.SKU, previous, quantity)
		}

		now := s.opts.now()
		if err := s.itemRepo.UpdateQuantity(tx, itemID, item.Version, next, callerID, now); err != nil {
			return err
		}

		entry = &model.Transaction{
			ItemID:           itemID,
			Type:             req.Type,
			Quantity:         quantity,
			PreviousQuantity: previous,
			NewQuantity:      next,
			Reason:           req.Reason,
			Reference:        req.Reference,
			PerformedBy:      callerID,
			CreatedAt:        now,
		}
		return s.ledgerRepo.Create(tx, entry)
	})
	if err != nil {
		return nil, nil, err
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	return item, entry, nil
}

func (s *ledgerService) List(ctx context.Context, q TransactionQuery) (*TransactionPage, error) {
	if err := checkPage(q.Page, q.Limit); err != nil {
		return nil, err
	}

	page := repository.Pagination{Page: q.Page, Limit: q.Limit}
	entries, total, err := s.ledgerRepo.List(ctx, repository.TransactionFilter{ItemID: q.ItemID}, page)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.Transaction{}
	}

	return &TransactionPage{
		Transactions: entries,
		Pagination: PageMeta{
			Page:       q.Page,
			Limit:      q.Limit,
			Total:      total,
			TotalPages: repository.TotalPages(total, q.Limit),
		},
	}, nil
}

// ListForItem returns the whole history of itemID, newest first. An unknown
// or deleted item yields whatever entries still reference it.
func (s *ledgerService) ListForItem(ctx context.Context, itemID uuid.UUID) ([]model.Transaction, error) {
	entries, err := s.ledgerRepo.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.Transaction{}
	}
	return entries, nil
}
