package handler

import (
	"go-stock-ledger/internal/apierror"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	service service.AuthService
}

func NewAuthHandler(s service.AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles user authentication
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	if req.Email == "" || req.Password == "" {
		fields := map[string]string{}
		if req.Email == "" {
			fields["email"] = "required"
		}
		if req.Password == "" {
			fields["password"] = "required"
		}
		return apierror.Write(c, model.NewValidationError(fields))
	}

	resp, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return apierror.Write(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   resp.Token,
		"user":    resp.User,
	})
}

// Me returns the current authenticated user
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.service.Me(c.UserContext(), userIDFrom(c))
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(user)
}
