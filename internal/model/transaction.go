package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TxIn         TransactionType = "in"
	TxOut        TransactionType = "out"
	TxAdjustment TransactionType = "adjustment"
)

// ErrLedgerImmutable is returned by GORM hooks on any attempt to rewrite history.
var ErrLedgerImmutable = errors.New("ledger entries cannot be modified or deleted")

func (t TransactionType) Valid() bool {
	switch t {
	case TxIn, TxOut, TxAdjustment:
		return true
	}
	return false
}

// Apply returns the quantity that results from applying an entry of this type
// to previous. "adjustment" sets an absolute value. The result may be negative;
// callers must reject it.
func (t TransactionType) Apply(previous, quantity int) int {
	switch t {
	case TxIn:
		return previous + quantity
	case TxOut:
		return previous - quantity
	default:
		return quantity
	}
}

// Transaction is one append-only ledger entry. ItemID is a plain reference:
// the entry outlives the item, so Item may fail to resolve.
type Transaction struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"item_id"`
	Item             *Item           `gorm:"foreignKey:ItemID" json:"-"`
	Type             TransactionType `gorm:"type:varchar(20);not null" json:"type"`
	Quantity         int             `gorm:"not null" json:"quantity"`
	PreviousQuantity int             `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int             `gorm:"not null" json:"new_quantity"`
	Reason           string          `gorm:"type:varchar(200)" json:"reason"`
	Reference        string          `gorm:"type:varchar(100)" json:"reference"`
	PerformedBy      uuid.UUID       `gorm:"type:uuid;not null" json:"performed_by"`
	PerformedByUser  *User           `gorm:"foreignKey:PerformedBy" json:"-"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

func (t *Transaction) BeforeUpdate(tx *gorm.DB) error { return ErrLedgerImmutable }

func (t *Transaction) BeforeDelete(tx *gorm.DB) error { return ErrLedgerImmutable }

// TransactionResponse is used for API responses.
type TransactionResponse struct {
	ID               uuid.UUID       `json:"id"`
	ItemID           uuid.UUID       `json:"item_id"`
	Item             *ItemSummary    `json:"item,omitempty"`
	Type             TransactionType `json:"type"`
	Quantity         int             `json:"quantity"`
	PreviousQuantity int             `json:"previous_quantity"`
	NewQuantity      int             `json:"new_quantity"`
	Reason           string          `json:"reason"`
	Reference        string          `json:"reference"`
	PerformedBy      *UserSummary    `json:"performed_by,omitempty"`
	PerformedByID    uuid.UUID       `json:"performed_by_id"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ToResponse converts Transaction to TransactionResponse. A deleted item
// leaves Item nil.
func (t *Transaction) ToResponse() TransactionResponse {
	response := TransactionResponse{
		ID:               t.ID,
		ItemID:           t.ItemID,
		Type:             t.Type,
		Quantity:         t.Quantity,
		PreviousQuantity: t.PreviousQuantity,
		NewQuantity:      t.NewQuantity,
		Reason:           t.Reason,
		Reference:        t.Reference,
		PerformedByID:    t.PerformedBy,
		CreatedAt:        t.CreatedAt,
	}

	if t.Item != nil {
		response.Item = &ItemSummary{ID: t.Item.ID, Name: t.Item.Name, SKU: t.Item.SKU}
	}
	if t.PerformedByUser != nil {
		summary := t.PerformedByUser.Summary()
		response.PerformedBy = &summary
	}

	return response
}
