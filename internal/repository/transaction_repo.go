package repository

import (
	"context"
	"time"

	"go-inventory-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionFilter restricts the ledger listing; nil ItemID lists everything.
type TransactionFilter struct {
	ItemID *uuid.UUID
}

// The ledger is append-only: there is no Update or Delete here.
type TransactionRepository interface {
	Create(tx *gorm.DB, entry *model.Transaction) error
	List(ctx context.Context, filter TransactionFilter, page Pagination) ([]model.Transaction, int64, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]model.Transaction, error)
	GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error)
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
}

// StockMovementData is one day of inbound/outbound totals.
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// DashboardStats untuk overview stats
type DashboardStats struct {
	TotalItems     int64           `json:"total_items"`
	LowStockCount  int64           `json:"low_stock_count"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) Create(tx *gorm.DB, entry *model.Transaction) error {
	return tx.Create(entry).Error
}

func selectItemSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "sku")
}

func (r *transactionRepo) List(ctx context.Context, filter TransactionFilter, page Pagination) ([]model.Transaction, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.ItemID != nil {
			return db.Where("item_id = ?", *filter.ItemID)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Transaction{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []model.Transaction
	err := r.db.WithContext(ctx).
		Scopes(scope).
		Preload("Item", selectItemSummary).
		Preload("PerformedByUser", selectUserSummary).
		Order("created_at DESC").
		Order("id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&entries).Error
	return entries, total, err
}

func (r *transactionRepo) ListByItem(ctx context.Context, itemID uuid.UUID) ([]model.Transaction, error) {
	var entries []model.Transaction
	err := r.db.WithContext(ctx).
		Preload("PerformedByUser", selectUserSummary).
		Where("item_id = ?", itemID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error
	return entries, err
}

func (r *transactionRepo) GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error) {
	var results []StockMovementData

	rows, err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN type = ? THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN type = ? THEN quantity ELSE 0 END), 0) as outbound
		`, model.TxIn, model.TxOut).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		if len(data.Date) > 10 {
			data.Date = data.Date[:10]
		}
		results = append(results, data)
	}

	return results, rows.Err()
}

func (r *transactionRepo) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Item{}).Count(&stats.TotalItems).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&model.Item{}).
		Where("status = ? AND quantity <= min_quantity", model.ItemActive).
		Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}

	var raw string
	if err := db.Model(&model.Item{}).Select("COALESCE(SUM(quantity * price), 0)").Row().Scan(&raw); err != nil {
		return nil, err
	}
	valuation, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	stats.TotalValuation = valuation

	return &stats, nil
}
