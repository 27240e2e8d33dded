package handler

import (
	"fmt"

	"go-stock-ledger/internal/apierror"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type InventoryHandler struct {
	service service.InventoryService
}

func NewInventoryHandler(s service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: s}
}

// GET /api/v1/products
func (h *InventoryHandler) GetProducts(c *fiber.Ctx) error {
	page, err := h.service.ListProducts(c.UserContext(), listQuery(c))
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(page)
}

// GET /api/v1/products/dropdown
func (h *InventoryHandler) GetProductOptions(c *fiber.Ctx) error {
	options, err := h.service.ProductOptions(c.UserContext())
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(fiber.Map{"data": options})
}

func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "product")
	if err != nil {
		return apierror.Write(c, err)
	}

	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(fiber.Map{"data": product})
}

func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	product, err := h.service.CreateProduct(c.UserContext(), req, actorFrom(c))
	if err != nil {
		return apierror.Write(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *InventoryHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "product")
	if err != nil {
		return apierror.Write(c, err)
	}

	var req service.UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	updated, err := h.service.UpdateProduct(c.UserContext(), id, req, actorFrom(c))
	if err != nil {
		return apierror.Write(c, err)
	}

	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

func (h *InventoryHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "product")
	if err != nil {
		return apierror.Write(c, err)
	}

	if err := h.service.DeleteProduct(c.UserContext(), id, actorFrom(c)); err != nil {
		return apierror.Write(c, err)
	}

	return c.JSON(fiber.Map{"message": "Product deleted"})
}

// GET /api/v1/transactions?product_id=&kind=
func (h *InventoryHandler) GetTransactions(c *fiber.Ctx) error {
	q := model.TransactionQuery{ListQuery: listQuery(c)}

	if raw := c.Query("product_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apierror.Write(c, model.InvalidField("product_id", "uuid"))
		}
		q.ProductID = id
	}
	if raw := c.Query("kind"); raw != "" {
		kind, err := model.ParseKind(raw)
		if err != nil {
			return apierror.Write(c, err)
		}
		q.Kind = kind
	}

	page, err := h.service.ListTransactions(c.UserContext(), q)
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(page)
}

func (h *InventoryHandler) GetTransaction(c *fiber.Ctx) error {
	id, err := paramID(c, "transaction")
	if err != nil {
		return apierror.Write(c, err)
	}

	tx, err := h.service.GetTransaction(c.UserContext(), id)
	if err != nil {
		return apierror.Write(c, fmt.Errorf("get transaction: %w", err))
	}
	return c.JSON(fiber.Map{"data": tx})
}
