package handler

import (
	"github.com/gofiber/fiber/v2"

	"eduplatform/internal/domain"
	"eduplatform/internal/middleware"
	"eduplatform/internal/service/access"
)

type AccessHandler struct {
	accessService access.Service
}

func NewAccessHandler(accessService access.Service) *AccessHandler {
	return &AccessHandler{accessService: accessService}
}

func (h *AccessHandler) CreateRequest(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var input domain.CreateAccessRequestInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	req, err := h.accessService.RequestAccess(c.UserContext(), userID, input, middleware.RequestMeta(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(req)
}

func (h *AccessHandler) ListMine(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	result, err := h.accessService.ListByRequester(c.UserContext(), userID, getPaginationParams(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *AccessHandler) ListPending(c *fiber.Ctx) error {
	result, err := h.accessService.ListPending(c.UserContext(), getPaginationParams(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *AccessHandler) Get(c *fiber.Ctx) error {
	requestID, err := parseUUIDParam(c, "requestId")
	if err != nil {
		return err
	}

	req, err := h.accessService.GetRequest(c.UserContext(), requestID, middleware.CurrentReviewer(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(req)
}

func (h *AccessHandler) Review(c *fiber.Ctx) error {
	requestID, err := parseUUIDParam(c, "requestId")
	if err != nil {
		return err
	}

	var input domain.ReviewAccessRequestInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	result, err := h.accessService.ReviewAccess(c.UserContext(), requestID, middleware.CurrentReviewer(c), input, middleware.RequestMeta(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *AccessHandler) Grant(c *fiber.Ctx) error {
	var input domain.GrantAccessInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	grant, err := h.accessService.GrantAccess(c.UserContext(), middleware.CurrentReviewer(c), input, middleware.RequestMeta(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(grant)
}

func (h *AccessHandler) ListMyGrants(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	grants, err := h.accessService.ListGrants(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if grants == nil {
		grants = []domain.AccessGrant{}
	}

	return c.Status(fiber.StatusOK).JSON(grants)
}

func (h *AccessHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.accessService.Stats(c.UserContext())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(stats)
}
