package model

import "github.com/google/uuid"

// Product is a stocked item. Stock is a materialized view of the product's
// ledger and is only written by the ledger repository.
type Product struct {
	BaseModel
	Name         string `gorm:"type:varchar(255);not null" json:"name"`
	SKU          string `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku"`
	RackLocation string `gorm:"type:varchar(100)" json:"rack_location"`
	OpeningStock int    `gorm:"not null;default:0;check:chk_products_opening_stock,opening_stock >= 0" json:"opening_stock"`
	Stock        int    `gorm:"not null;default:0;check:chk_products_stock,stock >= 0" json:"stock"`

	Transactions []Transaction `gorm:"constraint:OnDelete:CASCADE" json:"transactions,omitempty"`
}

// DerivedTotals is a product row enriched with its ledger sums.
type DerivedTotals struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	SKU          string    `json:"sku"`
	RackLocation string    `json:"rack_location"`
	OpeningStock int       `json:"opening_stock"`
	Stock        int       `json:"stock"`
	TotalIn      int64     `json:"total_in"`
	TotalOut     int64     `json:"total_out"`
	DerivedTotal int64     `json:"derived_total"`
}

// Derive recomputes DerivedTotal from the opening stock and ledger sums.
func (d *DerivedTotals) Derive() {
	d.DerivedTotal = int64(d.OpeningStock) + d.TotalIn - d.TotalOut
}

// Drift returns the difference between the cached counter and the ledger.
func (d DerivedTotals) Drift() int64 {
	return int64(d.Stock) - d.DerivedTotal
}

// ProductOption is the slim shape used by product pickers.
type ProductOption struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	SKU   string    `json:"sku"`
	Stock int       `json:"stock"`
}

// StockSlice is one entry of the stock snapshot chart.
type StockSlice struct {
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// DriftReport flags a product whose counter disagrees with its ledger.
type DriftReport struct {
	ProductID    uuid.UUID `json:"product_id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Stock        int       `json:"stock"`
	DerivedTotal int64     `json:"derived_total"`
	Drift        int64     `json:"drift"`
}
