package handler

import (
	"go-stock-ledger/internal/apierror"
	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LedgerHandler exposes every write that moves stock.
type LedgerHandler struct {
	service service.LedgerService
}

func NewLedgerHandler(s service.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: s}
}

// POST /api/v1/transactions
func (h *LedgerHandler) CreateTransaction(c *fiber.Ctx) error {
	var req service.TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	if err := h.service.PostTransaction(c.UserContext(), req, actorFrom(c)); err != nil {
		return apierror.Write(c, err)
	}

	return c.JSON(fiber.Map{"message": "Transaction recorded"})
}

// PUT /api/v1/transactions/:id
func (h *LedgerHandler) UpdateTransaction(c *fiber.Ctx) error {
	id, err := paramID(c, "transaction")
	if err != nil {
		return apierror.Write(c, err)
	}

	var req service.TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	updated, err := h.service.ReviseTransaction(c.UserContext(), id, req, actorFrom(c))
	if err != nil {
		return apierror.Write(c, err)
	}

	return c.JSON(fiber.Map{"message": "Transaction updated", "data": updated})
}

// DELETE /api/v1/transactions/:id
func (h *LedgerHandler) DeleteTransaction(c *fiber.Ctx) error {
	id, err := paramID(c, "transaction")
	if err != nil {
		return apierror.Write(c, err)
	}

	if err := h.service.RemoveTransaction(c.UserContext(), id, actorFrom(c)); err != nil {
		return apierror.Write(c, err)
	}

	return c.JSON(fiber.Map{"message": "Transaction deleted"})
}

// PUT /api/v1/products/:id/stock
func (h *LedgerHandler) AdjustStock(c *fiber.Ctx) error {
	id, err := paramID(c, "product")
	if err != nil {
		return apierror.Write(c, err)
	}

	var req service.AdjustStockRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	product, err := h.service.AdjustStock(c.UserContext(), id, req, actorFrom(c))
	if err != nil {
		return apierror.Write(c, err)
	}

	return c.JSON(fiber.Map{"message": "Stock adjusted", "data": product})
}

// GET /api/v1/ledger/reconcile
func (h *LedgerHandler) Reconcile(c *fiber.Ctx) error {
	drift, err := h.service.Reconcile(c.UserContext())
	if err != nil {
		return apierror.Write(c, err)
	}

	return c.JSON(fiber.Map{
		"consistent": len(drift) == 0,
		"drift":      drift,
	})
}
