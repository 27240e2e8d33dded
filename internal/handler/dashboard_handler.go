package handler

import (
	"go-stock-ledger/internal/apierror"
	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GET /api/v1/chart/daily-net?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *DashboardHandler) GetDailyNet(c *fiber.Ctx) error {
	chart, err := h.service.DailyNetChart(c.UserContext(), c.Query("from"), c.Query("to"))
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(chart)
}

// GET /api/v1/chart/stock-snapshot
func (h *DashboardHandler) GetStockSnapshot(c *fiber.Ctx) error {
	slices, err := h.service.StockSnapshot(c.UserContext())
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(fiber.Map{"data": slices})
}
