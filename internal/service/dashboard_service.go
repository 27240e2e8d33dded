package service

import (
	"context"
	"strings"
	"time"

	"go-stock-ledger/internal/cache"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
)

type DashboardService interface {
	DailyNetChart(ctx context.Context, from, to string) (*model.DailyNetChart, error)
	StockSnapshot(ctx context.Context) ([]model.StockSlice, error)
}

type dashboardService struct {
	txRepo      repository.TransactionRepository
	productRepo repository.ProductRepository
	cache       cache.Cache
}

func NewDashboardService(txRepo repository.TransactionRepository, productRepo repository.ProductRepository, c cache.Cache) DashboardService {
	return &dashboardService{txRepo: txRepo, productRepo: productRepo, cache: c}
}

// DailyNetChart returns inbound and outbound totals per transaction date.
// from and to are optional inclusive YYYY-MM-DD bounds.
func (s *dashboardService) DailyNetChart(ctx context.Context, from, to string) (*model.DailyNetChart, error) {
	fields := fieldErrors{}
	start := parseBound(fields, "from", from)
	end := parseBound(fields, "to", to)
	if start != nil && end != nil && start.After(*end) {
		fields["from"] = "ltefield=to"
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	key := "daily-net:" + strings.TrimSpace(from) + ":" + strings.TrimSpace(to)
	chart, err := cache.Remember(ctx, s.cache, key, func(ctx context.Context) (model.DailyNetChart, error) {
		rows, err := s.txRepo.DailyTotals(ctx, start, end)
		if err != nil {
			return model.DailyNetChart{}, err
		}
		return model.BuildDailyNetChart(rows), nil
	})
	if err != nil {
		return nil, err
	}
	return &chart, nil
}

// StockSnapshot returns (name, stock) for every product with stock on hand.
func (s *dashboardService) StockSnapshot(ctx context.Context) ([]model.StockSlice, error) {
	return cache.Remember(ctx, s.cache, "stock-snapshot", s.productRepo.StockSnapshot)
}

func parseBound(fields fieldErrors, name, raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		fields[name] = "datetime=" + model.DateLayout
		return nil
	}
	return &d
}
