package repository

import (
	"context"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	SKUTaken(ctx context.Context, sku string, exceptID uuid.UUID) (bool, error)
	UpdateDetails(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListDerived(ctx context.Context, q model.ListQuery) ([]model.DerivedTotals, int64, error)
	FindDerived(ctx context.Context, id uuid.UUID) (*model.DerivedTotals, error)
	Options(ctx context.Context) ([]model.ProductOption, error)
	StockSnapshot(ctx context.Context) ([]model.StockSlice, error)
	Drifting(ctx context.Context) ([]model.DriftReport, error)
}

const (
	sumIn  = "COALESCE(SUM(CASE WHEN t.kind = 'in' THEN t.quantity END), 0)"
	sumOut = "COALESCE(SUM(CASE WHEN t.kind = 'out' THEN t.quantity END), 0)"

	derivedSelect = "p.id, p.name, p.sku, p.rack_location, p.opening_stock, p.stock, " +
		sumIn + " AS total_in, " +
		sumOut + " AS total_out, " +
		"p.opening_stock + " + sumIn + " - " + sumOut + " AS derived_total"
)

// productSortColumns whitelists sort_by values for the derived listing.
var productSortColumns = map[string]string{
	"id":            "p.created_at",
	"name":          "p.name",
	"sku":           "p.sku",
	"rack_location": "p.rack_location",
	"total_in":      "total_in",
	"total_out":     "total_out",
	"derived_total": "derived_total",
	"stock":         "p.stock",
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return translate(r.db.WithContext(ctx).Create(product).Error, "product sku")
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err, "product")
	}
	return &product, nil
}

func (r *productRepo) SKUTaken(ctx context.Context, sku string, exceptID uuid.UUID) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Product{}).Where("sku = ?", sku)
	if exceptID != uuid.Nil {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, translate(err, "product")
	}
	return count > 0, nil
}

// UpdateDetails writes the descriptive columns only. Stock is owned by the
// ledger and never changes here.
func (r *productRepo) UpdateDetails(ctx context.Context, product *model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"name":          product.Name,
			"sku":           product.SKU,
			"rack_location": product.RackLocation,
			"updated_by":    product.UpdatedBy,
		})
	if res.Error != nil {
		return translate(res.Error, "product sku")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "product")
	}
	return nil
}

// Delete hard-deletes the product; its transactions go with it through the
// ON DELETE CASCADE foreign key.
func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "product")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "product")
	}
	return nil
}

func (r *productRepo) derived(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("products p").
		Select(derivedSelect).
		Joins("LEFT JOIN transactions t ON t.product_id = p.id").
		Group("p.id")
}

func (r *productRepo) ListDerived(ctx context.Context, q model.ListQuery) ([]model.DerivedTotals, int64, error) {
	q.Normalize()

	count := r.db.WithContext(ctx).Table("products p")
	rows := r.derived(ctx)
	if q.Search != "" {
		like := "%" + q.Search + "%"
		where := "p.name ILIKE ? OR p.sku ILIKE ? OR p.rack_location ILIKE ?"
		count = count.Where(where, like, like, like)
		rows = rows.Where(where, like, like, like)
	}

	var total int64
	if err := count.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "product")
	}

	column, ok := productSortColumns[q.SortBy]
	if !ok {
		column = "p.name"
	}

	var items []model.DerivedTotals
	err := rows.
		Order(column + " " + q.SortOrder + ", p.id").
		Limit(q.PerPage).
		Offset(q.Offset()).
		Scan(&items).Error
	if err != nil {
		return nil, 0, translate(err, "product")
	}
	if items == nil {
		items = []model.DerivedTotals{}
	}
	return items, total, nil
}

func (r *productRepo) FindDerived(ctx context.Context, id uuid.UUID) (*model.DerivedTotals, error) {
	var items []model.DerivedTotals
	if err := r.derived(ctx).Where("p.id = ?", id).Scan(&items).Error; err != nil {
		return nil, translate(err, "product")
	}
	if len(items) == 0 {
		return nil, translate(gorm.ErrRecordNotFound, "product")
	}
	return &items[0], nil
}

func (r *productRepo) Options(ctx context.Context) ([]model.ProductOption, error) {
	options := []model.ProductOption{}
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Select("id, name, sku, stock").
		Order("name ASC").
		Scan(&options).Error
	return options, translate(err, "product")
}

// StockSnapshot lists products that currently have stock on hand.
func (r *productRepo) StockSnapshot(ctx context.Context) ([]model.StockSlice, error) {
	slices := []model.StockSlice{}
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Select("name, stock").
		Where("stock > 0").
		Order("name ASC, id ASC").
		Scan(&slices).Error
	return slices, translate(err, "product")
}

// Drifting returns every product whose stock counter disagrees with the
// opening stock plus its ledger sums.
func (r *productRepo) Drifting(ctx context.Context) ([]model.DriftReport, error) {
	var rows []model.DerivedTotals
	err := r.derived(ctx).
		Having("p.stock <> p.opening_stock + " + sumIn + " - " + sumOut).
		Order("p.sku ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "product")
	}

	reports := make([]model.DriftReport, 0, len(rows))
	for _, row := range rows {
		row.Derive()
		reports = append(reports, model.DriftReport{
			ProductID:    row.ID,
			SKU:          row.SKU,
			Name:         row.Name,
			Stock:        row.Stock,
			DerivedTotal: row.DerivedTotal,
			Drift:        row.Drift(),
		})
	}
	return reports, nil
}
