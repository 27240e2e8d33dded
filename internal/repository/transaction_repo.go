package repository

import (
	"context"
	"time"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionRepository is the read side of the ledger. Writes go through
// LedgerRepository.
type TransactionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.TransactionView, error)
	List(ctx context.Context, q model.TransactionQuery) ([]model.TransactionView, int64, error)
	DailyTotals(ctx context.Context, from, to *time.Time) ([]model.DailyKindTotal, error)
}

const viewSelect = "t.id, t.product_id, t.kind, t.quantity, t.transaction_date, t.note, " +
	"t.created_at, t.updated_at, t.created_by, " +
	"p.name AS product_name, p.sku, p.rack_location, p.stock"

var transactionSortColumns = map[string]string{
	"transaction_date": "t.transaction_date",
	"kind":             "t.kind",
	"quantity":         "t.quantity",
	"name":             "p.name",
	"sku":              "p.sku",
	"rack_location":    "p.rack_location",
	"created_at":       "t.created_at",
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("transactions t").
		Joins("JOIN products p ON p.id = t.product_id")
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.TransactionView, error) {
	var views []model.TransactionView
	if err := r.joined(ctx).Select(viewSelect).Where("t.id = ?", id).Scan(&views).Error; err != nil {
		return nil, translate(err, "transaction")
	}
	if len(views) == 0 {
		return nil, translate(gorm.ErrRecordNotFound, "transaction")
	}
	return &views[0], nil
}

func (r *transactionRepo) List(ctx context.Context, q model.TransactionQuery) ([]model.TransactionView, int64, error) {
	q.Normalize()

	filtered := r.joined(ctx)
	if q.Search != "" {
		like := "%" + q.Search + "%"
		filtered = filtered.Where(
			"p.name ILIKE ? OR p.sku ILIKE ? OR t.kind ILIKE ? OR t.note ILIKE ?",
			like, like, like, like,
		)
	}
	if q.ProductID != uuid.Nil {
		filtered = filtered.Where("t.product_id = ?", q.ProductID)
	}
	if q.Kind != "" {
		filtered = filtered.Where("t.kind = ?", q.Kind)
	}

	filtered = filtered.Session(&gorm.Session{})

	var total int64
	if err := filtered.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "transaction")
	}

	column, ok := transactionSortColumns[q.SortBy]
	if !ok {
		column = "t.transaction_date"
	}

	views := []model.TransactionView{}
	err := filtered.
		Select(viewSelect).
		Order(column + " " + q.SortOrder + ", t.created_at DESC, t.id").
		Limit(q.PerPage).
		Offset(q.Offset()).
		Scan(&views).Error
	if err != nil {
		return nil, 0, translate(err, "transaction")
	}
	return views, total, nil
}

// DailyTotals sums quantities per (transaction_date, kind), optionally
// bounded by an inclusive date range.
func (r *transactionRepo) DailyTotals(ctx context.Context, from, to *time.Time) ([]model.DailyKindTotal, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select(`to_char(transaction_date, 'YYYY-MM-DD') AS "date", kind, SUM(quantity) AS total`)
	if from != nil {
		q = q.Where("transaction_date >= ?", from.Format(model.DateLayout))
	}
	if to != nil {
		q = q.Where("transaction_date <= ?", to.Format(model.DateLayout))
	}

	var rows []model.DailyKindTotal
	err := q.Group("transaction_date, kind").Order("transaction_date ASC, kind ASC").Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "transaction")
	}
	return rows, nil
}
