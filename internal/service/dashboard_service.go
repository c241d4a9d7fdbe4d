package service

import (
	"context"

	"go-inventory-ledger/internal/repository"
)

const maxMovementDays = 365

type DashboardService interface {
	GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error)
	GetDashboardStats(ctx context.Context) (*repository.DashboardStats, error)
}

type dashboardService struct {
	txRepo repository.TransactionRepository
	opts   options
}

func NewDashboardService(txRepo repository.TransactionRepository, opts ...Option) DashboardService {
	return &dashboardService{txRepo: txRepo, opts: buildOptions(opts)}
}

// GetStockMovement sums in and out quantities per day over the last days.
func (s *dashboardService) GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error) {
	if days < 1 || days > maxMovementDays {
		return nil, validationErrorf("days must be between 1 and %d", maxMovementDays)
	}

	endDate := s.opts.now()
	startDate := endDate.AddDate(0, 0, -days)

	movement, err := s.txRepo.GetStockMovement(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if movement == nil {
		movement = []repository.StockMovementData{}
	}
	return movement, nil
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*repository.DashboardStats, error) {
	return s.txRepo.GetDashboardStats(ctx)
}
