package repository

import (
	"context"

	"go-inventory-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	FindAll(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	FindByName(ctx context.Context, name string) (*model.Category, error)
	Update(ctx context.Context, category *model.Category) error
	FindForShare(tx *gorm.DB, id uuid.UUID) (*model.Category, error)
	FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Category, error)
	Delete(tx *gorm.DB, id uuid.UUID) error
}

type categoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepo(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) Create(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepo) FindAll(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *categoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) FindByName(ctx context.Context, name string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}


func (r *categoryRepo) Update(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Model(category).Updates(map[string]interface{}{
		"name":        category.Name,
		"description": category.Description,
		"updated_at":  category.UpdatedAt,
	}).Error
}

// FindForShare reads the category inside tx. On postgres the row is share
// locked until tx ends, so a Delete holding FindForUpdate waits for tx.
func (r *categoryRepo) FindForShare(tx *gorm.DB, id uuid.UUID) (*model.Category, error) {
	return findCategoryLocked(tx, id, "SHARE")
}

func (r *categoryRepo) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Category, error) {
	return findCategoryLocked(tx, id, "UPDATE")
}

func findCategoryLocked(tx *gorm.DB, id uuid.UUID, strength string) (*model.Category, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: strength})
	}
	var category model.Category
	if err := q.First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) Delete(tx *gorm.DB, id uuid.UUID) error {
	res := tx.Delete(&model.Category{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
