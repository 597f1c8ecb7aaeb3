package handler

import (
	"github.com/gofiber/fiber/v2"

	"eduplatform/internal/domain"
	"eduplatform/internal/middleware"
	"eduplatform/internal/service/auth"
)

type UserHandler struct {
	authService auth.Service
}

func NewUserHandler(authService auth.Service) *UserHandler {
	return &UserHandler{authService: authService}
}

type assignRoleInput struct {
	Role domain.UserRole `json:"role" validate:"required,oneof=student teacher admin"`
}

func (h *UserHandler) AssignRole(c *fiber.Ctx) error {
	userID, err := parseUUIDParam(c, "userId")
	if err != nil {
		return err
	}

	var input assignRoleInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	if err := h.authService.AssignRole(c.UserContext(), middleware.GetCurrentUser(c), userID, input.Role); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
