package service

import (
	"time"

	"go-inventory-ledger/internal/event"
	"go-inventory-ledger/pkg/lock"
)

// AdjustmentObserver receives the outcome of every quantity adjustment.
type AdjustmentObserver interface {
	ObserveAdjustment(txType, result string)
}

type Option func(*options)

type options struct {
	now       func() time.Time
	publisher event.Publisher
	locker    lock.Locker
	observer  AdjustmentObserver
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPublisher sets where committed changes are announced.
func WithPublisher(p event.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithLocker sets the per-item lock. Defaults to an in-process keyed mutex.
func WithLocker(l lock.Locker) Option {
	return func(o *options) { o.locker = l }
}

func WithAdjustmentObserver(m AdjustmentObserver) Option {
	return func(o *options) { o.observer = m }
}

type nopObserver struct{}

func (nopObserver) ObserveAdjustment(string, string) {}

func buildOptions(opts []Option) options {
	o := options{
		now:       func() time.Time { return time.Now().UTC() },
		publisher: event.Nop{},
		locker:    lock.NewKeyedMutex(),
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
