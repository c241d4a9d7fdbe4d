package service

import (
	"context"
	"errors"
	"strings"

	"go-inventory-ledger/internal/model"
	"go-inventory-ledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=200"`
}

type CategoryService interface {
	List(ctx context.Context) ([]model.Category, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Category, error)
	Create(ctx context.Context, req *CategoryRequest) (*model.Category, error)
	Update(ctx context.Context, id uuid.UUID, req *CategoryRequest) (*model.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	itemRepo     repository.ItemRepository
	db           *gorm.DB
	opts         options
}

func NewCategoryService(cRepo repository.CategoryRepository, iRepo repository.ItemRepository, db *gorm.DB, opts ...Option) CategoryService {
	return &categoryService{
		categoryRepo: cRepo,
		itemRepo:     iRepo,
		db:           db,
		opts:         buildOptions(opts),
	}
}

func (s *categoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []model.Category{}
	}
	return categories, nil
}

func (s *categoryService) Get(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "category "+id.String())
	}
	return category, nil
}

// checkName trims the request and rejects a name held by another category.
func (s *categoryService) checkName(ctx context.Context, req *CategoryRequest, self uuid.UUID) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validate(req); err != nil {
		return err
	}

	existing, err := s.categoryRepo.FindByName(ctx, req.Name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != self {
		return validationErrorf("category %q already exists", req.Name)
	}
	return nil
}

func duplicateName(err error, name string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return validationErrorf("category %q already exists", name)
	}
	return err
}

func (s *categoryService) Create(ctx context.Context, req *CategoryRequest) (*model.Category, error) {
	if err := s.checkName(ctx, req, uuid.Nil); err != nil {
		return nil, err
	}

	now := s.opts.now()
	category := &model.Category{
		BaseModel:   model.BaseModel{CreatedAt: now, UpdatedAt: now},
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, duplicateName(err, req.Name)
	}
	return category, nil
}

func (s *categoryService) Update(ctx context.Context, id uuid.UUID, req *CategoryRequest) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "category "+id.String())
	}
	if err := s.checkName(ctx, req, id); err != nil {
		return nil, err
	}

	category.Name = req.Name
	category.Description = req.Description
	category.UpdatedAt = s.opts.now()
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, duplicateName(err, req.Name)
	}
	return category, nil
}

// Delete refuses to remove a category that items still reference. The
// category row stays locked from the count to the delete; item writes that
// assign it take a share lock on the same row.
func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.categoryRepo.FindForUpdate(tx, id); err != nil {
			return notFound(err, "category "+id.String())
		}

		inUse, err := s.itemRepo.CountByCategory(tx, id)
		if err != nil {
			return err
		}
		if inUse > 0 {
			return validationErrorf("category is referenced by %d item(s)", inUse)
		}

		return notFound(s.categoryRepo.Delete(tx, id), "category "+id.String())
	})
}
