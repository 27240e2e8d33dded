package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-stock-ledger/internal/cache"
	"go-stock-ledger/internal/events"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"

	"github.com/google/uuid"
)

// InventoryService manages the product catalog and the read side of the
// ledger. It never writes stock.
type InventoryService interface {
	CreateProduct(ctx context.Context, req CreateProductRequest, actor model.Actor) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req UpdateProductRequest, actor model.Actor) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID, actor model.Actor) error
	ListProducts(ctx context.Context, q model.ListQuery) (*model.Page[model.DerivedTotals], error)
	ProductOptions(ctx context.Context) ([]model.ProductOption, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.DerivedTotals, error)
	ListTransactions(ctx context.Context, q model.TransactionQuery) (*model.Page[model.TransactionResponse], error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*model.TransactionResponse, error)
}

type CreateProductRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	SKU          string `json:"sku" validate:"required,max=50"`
	RackLocation string `json:"rack_location" validate:"max=100"`
	OpeningStock int    `json:"opening_stock" validate:"gte=0,lte=2147483647"`
}

// UpdateProductRequest deliberately has no stock field; stock corrections go
// through PUT /products/:id/stock.
type UpdateProductRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	SKU          string `json:"sku" validate:"required,max=50"`
	RackLocation string `json:"rack_location" validate:"max=100"`
}

type inventoryService struct {
	productRepo     repository.ProductRepository
	transactionRepo repository.TransactionRepository
	cache           cache.Cache
	notifier        events.Notifier
}

func NewInventoryService(
	pRepo repository.ProductRepository,
	tRepo repository.TransactionRepository,
	c cache.Cache,
	notifier events.Notifier,
) InventoryService {
	return &inventoryService{
		productRepo:     pRepo,
		transactionRepo: tRepo,
		cache:           c,
		notifier:        notifier,
	}
}

func (s *inventoryService) CreateProduct(ctx context.Context, req CreateProductRequest, actor model.Actor) (*model.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.TrimSpace(req.SKU)
	req.RackLocation = strings.TrimSpace(req.RackLocation)
	if err := validateRequest(&req).err(); err != nil {
		return nil, err
	}

	if err := s.ensureSKUFree(ctx, req.SKU, uuid.Nil); err != nil {
		return nil, err
	}

	product := &model.Product{
		BaseModel:    model.BaseModel{CreatedBy: actor.ID, UpdatedBy: actor.ID},
		Name:         req.Name,
		SKU:          req.SKU,
		RackLocation: req.RackLocation,
		OpeningStock: req.OpeningStock,
		Stock:        req.OpeningStock,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, model.ActionProductCreated, *product, actor,
		fmt.Sprintf("%s created product '%s'", actor.Name, product.Name))
	return product, nil
}

func (s *inventoryService) UpdateProduct(ctx context.Context, id uuid.UUID, req UpdateProductRequest, actor model.Actor) (*model.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.TrimSpace(req.SKU)
	req.RackLocation = strings.TrimSpace(req.RackLocation)
	if err := validateRequest(&req).err(); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.SKU != product.SKU {
		if err := s.ensureSKUFree(ctx, req.SKU, id); err != nil {
			return nil, err
		}
	}

	product.Name = req.Name
	product.SKU = req.SKU
	product.RackLocation = req.RackLocation
	product.UpdatedBy = actor.ID
	if err := s.productRepo.UpdateDetails(ctx, product); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, model.ActionProductUpdated, *product, actor,
		fmt.Sprintf("%s updated product '%s'", actor.Name, product.Name))
	return product, nil
}

// DeleteProduct removes the product together with its ledger.
func (s *inventoryService) DeleteProduct(ctx context.Context, id uuid.UUID, actor model.Actor) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	product.Stock = 0
	s.afterWrite(ctx, model.ActionProductDeleted, *product, actor,
		fmt.Sprintf("%s deleted product '%s'", actor.Name, product.Name))
	return nil
}

func (s *inventoryService) ListProducts(ctx context.Context, q model.ListQuery) (*model.Page[model.DerivedTotals], error) {
	q.Normalize()
	items, total, err := s.productRepo.ListDerived(ctx, q)
	if err != nil {
		return nil, err
	}
	return &model.Page[model.DerivedTotals]{Data: items, Pagination: model.NewPagination(total, q)}, nil
}

func (s *inventoryService) ProductOptions(ctx context.Context) ([]model.ProductOption, error) {
	return s.productRepo.Options(ctx)
}

// GetProduct returns the product with total_in, total_out and derived_total.
func (s *inventoryService) GetProduct(ctx context.Context, id uuid.UUID) (*model.DerivedTotals, error) {
	d, err := s.productRepo.FindDerived(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Derive()
	return d, nil
}

func (s *inventoryService) ListTransactions(ctx context.Context, q model.TransactionQuery) (*model.Page[model.TransactionResponse], error) {
	if q.SortBy == "" {
		q.SortBy = "transaction_date"
		if q.SortOrder == "" {
			q.SortOrder = "desc"
		}
	}
	q.Normalize()

	views, total, err := s.transactionRepo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	data := make([]model.TransactionResponse, 0, len(views))
	for i := range views {
		data = append(data, views[i].ToResponse())
	}
	return &model.Page[model.TransactionResponse]{Data: data, Pagination: model.NewPagination(total, q.ListQuery)}, nil
}

func (s *inventoryService) GetTransaction(ctx context.Context, id uuid.UUID) (*model.TransactionResponse, error) {
	view, err := s.transactionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := view.ToResponse()
	return &resp, nil
}

func (s *inventoryService) ensureSKUFree(ctx context.Context, sku string, exceptID uuid.UUID) error {
	taken, err := s.productRepo.SKUTaken(ctx, sku, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: sku %q", model.ErrDuplicate, sku)
	}
	return nil
}

func (s *inventoryService) afterWrite(ctx context.Context, action string, p model.Product, actor model.Actor, msg string) {
	s.cache.Invalidate(ctx)
	s.notifier.Notify(ctx, model.StockEvent{
		Type:        model.EventTypeStockUpdate,
		Action:      action,
		ProductID:   p.ID,
		ProductName: p.Name,
		SKU:         p.SKU,
		NewStock:    p.Stock,
		User:        actor,
		Message:     msg,
		OccurredAt:  time.Now().UTC(),
	})
}
