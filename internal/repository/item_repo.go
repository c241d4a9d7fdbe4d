package repository

import (
	"context"
	"errors"
	"time"

	"go-inventory-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVersionConflict means the row changed between read and write.
var ErrVersionConflict = errors.New("item was modified concurrently")

// ItemFilter is a conjunction; zero fields do not restrict.
type ItemFilter struct {
	Search     string
	CategoryID *uuid.UUID
	Status     model.ItemStatus
}

type ItemRepository interface {
	Create(tx *gorm.DB, item *model.Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error)
	FindBySKU(ctx context.Context, sku string) (*model.Item, error)
	List(ctx context.Context, filter ItemFilter, page Pagination) ([]model.Item, int64, error)
	FindLowStock(ctx context.Context) ([]model.Item, error)
	CountByCategory(tx *gorm.DB, categoryID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Tx variants run inside the caller's database transaction.
	FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Item, error)
	UpdateFields(tx *gorm.DB, id uuid.UUID, expectedVersion int64, fields map[string]interface{}) error
	UpdateQuantity(tx *gorm.DB, id uuid.UUID, expectedVersion int64, newQuantity int, updatedBy uuid.UUID, at time.Time) error
}

type itemRepo struct {
	db *gorm.DB
}

func NewItemRepo(db *gorm.DB) ItemRepository {
	return &itemRepo{db}
}

func selectUserSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username")
}

func selectCategorySummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name")
}

func (r *itemRepo) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Category", selectCategorySummary).
		Preload("UpdatedByUser", selectUserSummary)
}

func (r *itemRepo) Create(tx *gorm.DB, item *model.Item) error {
	return tx.Create(item).Error
}

func (r *itemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	var item model.Item
	if err := r.preloaded(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepo) FindBySKU(ctx context.Context, sku string) (*model.Item, error) {
	var item model.Item
	if err := r.db.WithContext(ctx).First(&item, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func applyItemFilter(db *gorm.DB, f ItemFilter) *gorm.DB {
	if f.Search != "" {
		pattern := containsPattern(f.Search)
		db = db.Where(
			`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(sku) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}
	if f.CategoryID != nil {
		db = db.Where("category_id = ?", *f.CategoryID)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	return db
}

// List returns one page ordered by most recently updated first, plus the
// total number of matching items.
func (r *itemRepo) List(ctx context.Context, filter ItemFilter, page Pagination) ([]model.Item, int64, error) {
	var total int64
	if err := applyItemFilter(r.db.WithContext(ctx).Model(&model.Item{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.Item
	err := applyItemFilter(r.preloaded(ctx), filter).
		Order("updated_at DESC").
		Order("id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&items).Error
	return items, total, err
}

// FindLowStock evaluates quantity <= min_quantity in the query itself.
func (r *itemRepo) FindLowStock(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).
		Preload("Category", selectCategorySummary).
		Where("status = ? AND quantity <= min_quantity", model.ItemActive).
		Order("quantity ASC").
		Order("name ASC").
		Find(&items).Error
	return items, err
}

func (r *itemRepo) CountByCategory(tx *gorm.DB, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := tx.Model(&model.Item{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}

func (r *itemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Item{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindForUpdate reads the item inside tx. On postgres the row is also locked
// until tx ends; other dialects rely on the version check alone.
func (r *itemRepo) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Item, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item model.Item
	if err := q.First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateFields writes fields only if the stored version still equals
// expectedVersion, and bumps the version.
func (r *itemRepo) UpdateFields(tx *gorm.DB, id uuid.UUID, expectedVersion int64, fields map[string]interface{}) error {
	fields["version"] = gorm.Expr("version + 1")
	res := tx.Model(&model.Item{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *itemRepo) UpdateQuantity(tx *gorm.DB, id uuid.UUID, expectedVersion int64, newQuantity int, updatedBy uuid.UUID, at time.Time) error {
	return r.UpdateFields(tx, id, expectedVersion, map[string]interface{}{
		"quantity":     newQuantity,
		"last_updated": at,
		"updated_at":   at,
		"updated_by":   updatedBy,
	})
}
