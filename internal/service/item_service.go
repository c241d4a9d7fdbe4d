package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-inventory-ledger/internal/event"
	"go-inventory-ledger/internal/model"
	"go-inventory-ledger/internal/repository"
	"go-inventory-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateItemRequest carries the fields of a new item.
type CreateItemRequest struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description string           `json:"description" validate:"max=500"`
	SKU         string           `json:"sku" validate:"required,max=64"`
	CategoryID  uuid.UUID        `json:"category_id" validate:"uuid_required"`
	Quantity    int              `json:"quantity" validate:"gte=0"`
	MinQuantity *int             `json:"min_quantity" validate:"omitempty,gte=0"`
	Price       *decimal.Decimal `json:"price" validate:"required,gte=0"`
	Supplier    string           `json:"supplier" validate:"max=100"`
	Location    string           `json:"location" validate:"max=100"`
	Status      model.ItemStatus `json:"status" validate:"omitempty,oneof=active inactive discontinued"`
}

// UpdateItemRequest is a partial update: nil fields are left unchanged.
type UpdateItemRequest struct {
	Name        *string           `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string           `json:"description" validate:"omitempty,max=500"`
	SKU         *string           `json:"sku" validate:"omitempty,min=1,max=64"`
	CategoryID  *uuid.UUID        `json:"category_id" validate:"omitempty,uuid_required"`
	Quantity    *int              `json:"quantity" validate:"omitempty,gte=0"`
	MinQuantity *int              `json:"min_quantity" validate:"omitempty,gte=0"`
	Price       *decimal.Decimal  `json:"price" validate:"omitempty,gte=0"`
	Supplier    *string           `json:"supplier" validate:"omitempty,max=100"`
	Location    *string           `json:"location" validate:"omitempty,max=100"`
	Status      *model.ItemStatus `json:"status" validate:"omitempty,oneof=active inactive discontinued"`
}

// ItemQuery selects one page of the catalog.
type ItemQuery struct {
	Search     string
	CategoryID *uuid.UUID
	Status     model.ItemStatus
	Page       int
	Limit      int
}

type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type ItemPage struct {
	Items      []model.Item `json:"items"`
	Pagination PageMeta     `json:"pagination"`
}

type ItemService interface {
	List(ctx context.Context, q ItemQuery) (*ItemPage, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Item, error)
	Create(ctx context.Context, req *CreateItemRequest, callerID uuid.UUID) (*model.Item, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateItemRequest, callerID uuid.UUID) (*model.Item, error)
	Delete(ctx context.Context, id uuid.UUID, callerID uuid.UUID) error
	LowStock(ctx context.Context) ([]model.Item, error)
}

type itemService struct {
	itemRepo     repository.ItemRepository
	categoryRepo repository.CategoryRepository
	ledgerRepo   repository.TransactionRepository
	db           *gorm.DB
	opts         options
}

func NewItemService(iRepo repository.ItemRepository, cRepo repository.CategoryRepository, tRepo repository.TransactionRepository, db *gorm.DB, opts ...Option) ItemService {
	return &itemService{
		itemRepo:     iRepo,
		categoryRepo: cRepo,
		ledgerRepo:   tRepo,
		db:           db,
		opts:         buildOptions(opts),
	}
}

// normalizeSKU trims and uppercases a SKU; SKUs are unique in this form.
func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

func (s *itemService) List(ctx context.Context, q ItemQuery) (*ItemPage, error) {
	if err := checkPage(q.Page, q.Limit); err != nil {
		return nil, err
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, validationErrorf("unknown status %q", q.Status)
	}

	filter := repository.ItemFilter{
		Search:     strings.TrimSpace(q.Search),
		CategoryID: q.CategoryID,
		Status:     q.Status,
	}
	page := repository.Pagination{Page: q.Page, Limit: q.Limit}

	items, total, err := s.itemRepo.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}

	return &ItemPage{
		Items: items,
		Pagination: PageMeta{
			Page:       q.Page,
			Limit:      q.Limit,
			Total:      total,
			TotalPages: repository.TotalPages(total, q.Limit),
		},
	}, nil
}

func (s *itemService) Get(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	item, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "item "+id.String())
	}
	return item, nil
}

func (s *itemService) LowStock(ctx context.Context) ([]model.Item, error) {
	items, err := s.itemRepo.FindLowStock(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// checkCategory fails with ErrReference unless id names a stored category.
// The category stays share locked until tx ends so it cannot be deleted
// underneath the item.
func (s *itemService) checkCategory(tx *gorm.DB, id uuid.UUID) error {
	_, err := s.categoryRepo.FindForShare(tx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: category %s", ErrReference, id)
	}
	return err
}

// checkSKUFree fails with ErrValidation when another item already uses sku.
func (s *itemService) checkSKUFree(ctx context.Context, sku string, self uuid.UUID) error {
	existing, err := s.itemRepo.FindBySKU(ctx, sku)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != self {
		return validationErrorf("sku %s already exists", sku)
	}
	return nil
}

func duplicateSKU(err error, sku string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return validationErrorf("sku %s already exists", sku)
	}
	return err
}

func (s *itemService) Create(ctx context.Context, req *CreateItemRequest, callerID uuid.UUID) (*model.Item, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = normalizeSKU(req.SKU)
	if err := validate(req); err != nil {
		return nil, err
	}

	if err := s.checkSKUFree(ctx, req.SKU, uuid.Nil); err != nil {
		return nil, err
	}

	now := s.opts.now()
	item := &model.Item{
		BaseModel:   model.BaseModel{CreatedAt: now, UpdatedAt: now},
		Name:        req.Name,
		Description: req.Description,
		SKU:         req.SKU,
		CategoryID:  req.CategoryID,
		Quantity:    req.Quantity,
		MinQuantity: model.DefaultMinQuantity,
		Price:       *req.Price,
		Supplier:    req.Supplier,
		Location:    req.Location,
		Status:      model.ItemActive,
		LastUpdated: now,
		UpdatedBy:   callerID,
	}
	if req.MinQuantity != nil {
		item.MinQuantity = *req.MinQuantity
	}
	if req.Status != "" {
		item.Status = req.Status
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkCategory(tx, req.CategoryID); err != nil {
			return err
		}
		return s.itemRepo.Create(tx, item)
	})
	if err != nil {
		return nil, duplicateSKU(err, item.SKU)
	}

	created, err := s.itemRepo.FindByID(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).Str("item_id", created.ID.String()).Str("sku", created.SKU).Msg("item created")
	event.Dispatch(ctx, s.opts.publisher, event.ForItem(event.ItemCreated, created, callerID, now))
	return created, nil
}

func (s *itemService) Update(ctx context.Context, id uuid.UUID, req *UpdateItemRequest, callerID uuid.UUID) (*model.Item, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if req.SKU != nil {
		sku := normalizeSKU(*req.SKU)
		req.SKU = &sku
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	if req.SKU != nil {
		if err := s.checkSKUFree(ctx, *req.SKU, id); err != nil {
			return nil, err
		}
	}

	now := s.opts.now()
	err := writeItem(ctx, s.opts.locker, s.db, id, func(tx *gorm.DB) error {
		existing, err := s.itemRepo.FindForUpdate(tx, id)
		if err != nil {
			return notFound(err, "item "+id.String())
		}

		fields := map[string]interface{}{
			"last_updated": now,
			"updated_at":   now,
			"updated_by":   callerID,
		}
		if req.Name != nil {
			fields["name"] = *req.Name
		}
		if req.Description != nil {
			fields["description"] = *req.Description
		}
		if req.SKU != nil {
			fields["sku"] = *req.SKU
		}
		if req.CategoryID != nil {
			if err := s.checkCategory(tx, *req.CategoryID); err != nil {
				return err
			}
			fields["category_id"] = *req.CategoryID
		}
		if req.MinQuantity != nil {
			fields["min_quantity"] = *req.MinQuantity
		}
		if req.Price != nil {
			fields["price"] = *req.Price
		}
		if req.Supplier != nil {
			fields["supplier"] = *req.Supplier
		}
		if req.Location != nil {
			fields["location"] = *req.Location
		}
		if req.Status != nil {
			fields["status"] = *req.Status
		}
		if req.Quantity != nil {
			fields["quantity"] = *req.Quantity
		}

		if err := s.itemRepo.UpdateFields(tx, id, existing.Version, fields); err != nil {
			if req.SKU != nil {
				return duplicateSKU(err, *req.SKU)
			}
			return err
		}

		// A quantity set through the catalog is recorded like any other
		// absolute adjustment so the item's history stays contiguous.
		if req.Quantity != nil && *req.Quantity != existing.Quantity {
			return s.ledgerRepo.Create(tx, &model.Transaction{
				ItemID:           id,
				Type:             model.TxAdjustment,
				Quantity:         *req.Quantity,
				PreviousQuantity: existing.Quantity,
				NewQuantity:      *req.Quantity,
				Reason:           "item update",
				PerformedBy:      callerID,
				CreatedAt:        now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	event.Dispatch(ctx, s.opts.publisher, event.ForItem(event.ItemUpdated, updated, callerID, now))
	return updated, nil
}

// Delete removes the item for good. Its ledger entries are kept and keep
// pointing at the removed id.
func (s *itemService) Delete(ctx context.Context, id uuid.UUID, callerID uuid.UUID) error {
	release, err := s.opts.locker.Lock(ctx, id.String())
	if err != nil {
		return fmt.Errorf("lock item %s: %w", id, err)
	}
	defer release()

	item, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "item "+id.String())
	}
	if err := s.itemRepo.Delete(ctx, id); err != nil {
		return notFound(err, "item "+id.String())
	}

	logger.Info(ctx).Str("item_id", id.String()).Str("sku", item.SKU).Msg("item deleted")
	event.Dispatch(ctx, s.opts.publisher, event.ForItem(event.ItemDeleted, item, callerID, s.opts.now()))
	return nil
}
