package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ItemStatus string

const (
	ItemActive       ItemStatus = "active"
	ItemInactive     ItemStatus = "inactive"
	ItemDiscontinued ItemStatus = "discontinued"
)

// DefaultMinQuantity is the low-stock threshold used when none is given.
const DefaultMinQuantity = 10

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemActive, ItemInactive, ItemDiscontinued:
		return true
	}
	return false
}

// Item is a stocked article. Quantity is never negative; Version is bumped on
// every write and used for optimistic concurrency checks.
type Item struct {
	BaseModel
	Name        string          `gorm:"type:varchar(100);not null" json:"name"`
	Description string          `gorm:"type:varchar(500)" json:"description"`
	SKU         string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"sku"`
	CategoryID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryID" json:"-"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	MinQuantity int             `gorm:"not null" json:"min_quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Supplier    string          `gorm:"type:varchar(100)" json:"supplier"`
	Location    string          `gorm:"type:varchar(100)" json:"location"`
	Status      ItemStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	LastUpdated time.Time       `json:"last_updated"`

	UpdatedBy     uuid.UUID `gorm:"type:uuid" json:"updated_by"`
	UpdatedByUser *User     `gorm:"foreignKey:UpdatedBy" json:"-"`

	Version int64 `gorm:"not null" json:"-"`
}

// IsLowStock is derived on every call and never stored.
func (i *Item) IsLowStock() bool {
	return i.Quantity <= i.MinQuantity
}

// ItemSummary is the subset of an item embedded in transaction responses.
type ItemSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	SKU  string    `json:"sku"`
}

// ItemResponse is used for API responses.
type ItemResponse struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	SKU         string           `json:"sku"`
	CategoryID  uuid.UUID        `json:"category_id"`
	Category    *CategorySummary `json:"category,omitempty"`
	Quantity    int              `json:"quantity"`
	MinQuantity int              `json:"min_quantity"`
	Price       decimal.Decimal  `json:"price"`
	Supplier    string           `json:"supplier"`
	Location    string           `json:"location"`
	Status      ItemStatus       `json:"status"`
	IsLowStock  bool             `json:"is_low_stock"`
	LastUpdated time.Time        `json:"last_updated"`
	UpdatedBy   *UserSummary     `json:"updated_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ToResponse converts Item to ItemResponse, resolving preloaded references.
func (i *Item) ToResponse() ItemResponse {
	response := ItemResponse{
		ID:          i.ID,
		Name:        i.Name,
		Description: i.Description,
		SKU:         i.SKU,
		CategoryID:  i.CategoryID,
		Quantity:    i.Quantity,
		MinQuantity: i.MinQuantity,
		Price:       i.Price,
		Supplier:    i.Supplier,
		Location:    i.Location,
		Status:      i.Status,
		IsLowStock:  i.IsLowStock(),
		LastUpdated: i.LastUpdated,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}

	if i.Category != nil {
		response.Category = &CategorySummary{ID: i.Category.ID, Name: i.Category.Name}
	}
	if i.UpdatedByUser != nil {
		summary := i.UpdatedByUser.Summary()
		response.UpdatedBy = &summary
	}

	return response
}
