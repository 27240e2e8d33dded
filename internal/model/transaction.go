package model

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

type TransactionKind string

const (
	TxIn  TransactionKind = "in"
	TxOut TransactionKind = "out"
)

// Transaction is one append-only ledger entry. The owning product is not
// mapped as a belongs-to association so that AutoMigrate only creates the
// cascading foreign key declared on Product.Transactions.
type Transaction struct {
	BaseModel
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Kind            TransactionKind `gorm:"type:varchar(10);not null;index" json:"kind"`
	Quantity        int             `gorm:"not null;check:chk_transactions_quantity,quantity >= 1" json:"quantity"`
	TransactionDate time.Time       `gorm:"type:date;not null;index" json:"transaction_date"`
	Note            *string         `gorm:"type:varchar(255)" json:"note"`
}

// TransactionView is a ledger entry joined with its product, used by listings.
type TransactionView struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	Kind            TransactionKind `json:"kind"`
	Quantity        int             `json:"quantity"`
	TransactionDate time.Time       `json:"-"`
	Note            *string         `json:"note"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CreatedBy       string          `json:"created_by"`
	ProductName     string          `json:"product_name"`
	SKU             string          `json:"sku"`
	RackLocation    string          `json:"rack_location"`
	Stock           int             `json:"stock"`
}

// TransactionResponse is the API shape of a ledger entry.
type TransactionResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	Kind            TransactionKind `json:"kind"`
	Quantity        int             `json:"quantity"`
	TransactionDate string          `json:"transaction_date"`
	Note            *string         `json:"note"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CreatedBy       string          `json:"created_by"`
	ProductName     string          `json:"product_name,omitempty"`
	SKU             string          `json:"sku,omitempty"`
	RackLocation    string          `json:"rack_location,omitempty"`
	Stock           *int            `json:"stock,omitempty"`
}

// ToResponse converts a Transaction to TransactionResponse
func (t *Transaction) ToResponse() TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		ProductID:       t.ProductID,
		Kind:            t.Kind,
		Quantity:        t.Quantity,
		TransactionDate: t.TransactionDate.Format(DateLayout),
		Note:            t.Note,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		CreatedBy:       t.CreatedBy,
	}
}

// ToResponse converts a TransactionView to TransactionResponse
func (v *TransactionView) ToResponse() TransactionResponse {
	stock := v.Stock
	return TransactionResponse{
		ID:              v.ID,
		ProductID:       v.ProductID,
		Kind:            v.Kind,
		Quantity:        v.Quantity,
		TransactionDate: v.TransactionDate.Format(DateLayout),
		Note:            v.Note,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
		CreatedBy:       v.CreatedBy,
		ProductName:     v.ProductName,
		SKU:             v.SKU,
		RackLocation:    v.RackLocation,
		Stock:           &stock,
	}
}
