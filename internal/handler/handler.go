package handler

import (
	"fmt"

	"go-stock-ledger/internal/apierror"
	"go-stock-ledger/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// actorFrom reads the user set by RequireAuth.
func actorFrom(c *fiber.Ctx) model.Actor {
	id, _ := c.Locals("user_id").(string)
	if id == "" {
		return model.SystemActor
	}
	name, _ := c.Locals("user_name").(string)
	email, _ := c.Locals("user_email").(string)
	return model.Actor{ID: id, Name: name, Email: email}
}

func userIDFrom(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals("user_id").(string)
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil
	}
	return parsed
}

// paramID parses the :id route parameter. A malformed id can never match a
// row, so it is reported as not found.
func paramID(c *fiber.Ctx, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s %q", model.ErrNotFound, what, c.Params("id"))
	}
	return id, nil
}

// listQuery reads search, sort_by, sort_order, page and per_page.
func listQuery(c *fiber.Ctx) model.ListQuery {
	return model.ListQuery{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      c.QueryInt("page", 1),
		PerPage:   c.QueryInt("per_page", model.DefaultPerPage),
	}
}

func invalidJSON(c *fiber.Ctx) error {
	return apierror.New(c, fiber.StatusBadRequest, apierror.CodeBadRequest, "Invalid JSON")
}
