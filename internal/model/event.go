package model

import (
	"time"

	"github.com/google/uuid"
)

const EventTypeStockUpdate = "stock_update"

// Stock event actions
const (
	ActionProductCreated     = "product_created"
	ActionProductUpdated     = "product_updated"
	ActionProductDeleted     = "product_deleted"
	ActionTransactionCreated = "transaction_created"
	ActionTransactionRevised = "transaction_revised"
	ActionTransactionRemoved = "transaction_removed"
	ActionStockAdjusted      = "stock_adjusted"
)

// Actor identifies who triggered a write.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SystemActor is used for writes not tied to a logged in user.
var SystemActor = Actor{ID: "system", Name: "system"}

// StockEvent is published after a committed write that affects stock.
type StockEvent struct {
	Type          string           `json:"type"`
	Action        string           `json:"action"`
	ProductID     uuid.UUID        `json:"product_id"`
	ProductName   string           `json:"product_name,omitempty"`
	SKU           string           `json:"sku,omitempty"`
	TransactionID *uuid.UUID       `json:"transaction_id,omitempty"`
	Kind          *TransactionKind `json:"kind,omitempty"`
	Quantity      int              `json:"quantity,omitempty"`
	NewStock      int              `json:"new_stock"`
	User          Actor            `json:"user"`
	Message       string           `json:"message"`
	OccurredAt    time.Time        `json:"occurred_at"`
}
