package handler

import (
	"go-stock-ledger/internal/apierror"
	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(s service.UserService) *UserHandler {
	return &UserHandler{service: s}
}

// GET /api/v1/users
func (h *UserHandler) GetUsers(c *fiber.Ctx) error {
	page, err := h.service.ListUsers(c.UserContext(), listQuery(c))
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(page)
}

// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "user")
	if err != nil {
		return apierror.Write(c, err)
	}

	user, err := h.service.GetUser(c.UserContext(), id)
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(fiber.Map{"data": user})
}

// POST /api/v1/users
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req service.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	user, err := h.service.CreateUser(c.UserContext(), req)
	if err != nil {
		return apierror.Write(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "User created", "data": user})
}

// PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "user")
	if err != nil {
		return apierror.Write(c, err)
	}

	var req service.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	user, err := h.service.UpdateUser(c.UserContext(), id, req)
	if err != nil {
		return apierror.Write(c, err)
	}

	return c.JSON(fiber.Map{"message": "User updated", "data": user})
}

// DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := paramID(c, "user")
	if err != nil {
		return apierror.Write(c, err)
	}

	if err := h.service.DeleteUser(c.UserContext(), id, userIDFrom(c)); err != nil {
		return apierror.Write(c, err)
	}

	return c.JSON(fiber.Map{"message": "User deleted"})
}
