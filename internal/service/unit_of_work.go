package service

import (
	"context"
	"errors"
	"fmt"

	"go-inventory-ledger/internal/repository"
	"go-inventory-ledger/pkg/lock"
	"go-inventory-ledger/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxWriteAttempts = 3

// writeItem runs fn in a database transaction while holding the item lock.
// A version conflict rolls the attempt back and reruns fn from scratch; fn
// must therefore re-read everything it depends on through tx.
func writeItem(ctx context.Context, locker lock.Locker, db *gorm.DB, itemID uuid.UUID, fn func(tx *gorm.DB) error) error {
	release, err := locker.Lock(ctx, itemID.String())
	if err != nil {
		return fmt.Errorf("lock item %s: %w", itemID, err)
	}
	defer release()

	for attempt := 1; ; attempt++ {
		err := db.WithContext(ctx).Transaction(fn)
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		if attempt == maxWriteAttempts {
			return fmt.Errorf("%w: item %s", ErrConflict, itemID)
		}
		logger.Debug(ctx).
			Str("item_id", itemID.String()).
			Int("attempt", attempt).
			Msg("version conflict, retrying")
	}
}
