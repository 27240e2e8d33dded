package repository

import (
	"go-stock-ledger/internal/model"

	"gorm.io/gorm"
)

// Migrate creates or updates the products, transactions and users tables.
// Product.Transactions carries the ON DELETE CASCADE foreign key.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Product{}, &model.Transaction{}, &model.User{})
}
