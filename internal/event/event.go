// Package event carries ledger notifications to live sinks after a commit.
package event

import (
	"context"
	"errors"
	"time"

	"go-inventory-ledger/internal/model"
	"go-inventory-ledger/pkg/logger"

	"github.com/google/uuid"
)

type Type string

const (
	ItemCreated      Type = "item.created"
	ItemUpdated      Type = "item.updated"
	ItemDeleted      Type = "item.deleted"
	QuantityAdjusted Type = "quantity.adjusted"
	StockLow         Type = "stock.low"
)

// Event describes one committed catalog or ledger change.
type Event struct {
	Type             Type       `json:"type"`
	ItemID           uuid.UUID  `json:"item_id"`
	SKU              string     `json:"sku"`
	Name             string     `json:"name"`
	Quantity         int        `json:"quantity"`
	PreviousQuantity *int       `json:"previous_quantity,omitempty"`
	TransactionID    *uuid.UUID `json:"transaction_id,omitempty"`
	IsLowStock       bool       `json:"is_low_stock"`
	Actor            uuid.UUID  `json:"actor"`
	At               time.Time  `json:"at"`
}

// ForItem builds an event from the item's current state.
func ForItem(t Type, item *model.Item, actor uuid.UUID, at time.Time) Event {
	return Event{
		Type:       t,
		ItemID:     item.ID,
		SKU:        item.SKU,
		Name:       item.Name,
		Quantity:   item.Quantity,
		IsLowStock: item.IsLowStock(),
		Actor:      actor,
		At:         at,
	}
}

// ForEntry builds the quantity.adjusted event for a ledger entry.
func ForEntry(item *model.Item, entry *model.Transaction) Event {
	e := ForItem(QuantityAdjusted, item, entry.PerformedBy, entry.CreatedAt)
	previous := entry.PreviousQuantity
	id := entry.ID
	e.PreviousQuantity = &previous
	e.TransactionID = &id
	return e
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Dispatch publishes events in order. Failures are logged and dropped: the
// change they describe is already committed.
func Dispatch(ctx context.Context, p Publisher, events ...Event) {
	if p == nil {
		return
	}
	for _, e := range events {
		if err := p.Publish(ctx, e); err != nil {
			logger.Warn(ctx).Err(err).
				Str("event", string(e.Type)).
				Str("item_id", e.ItemID.String()).
				Msg("publish event failed")
		}
	}
}
