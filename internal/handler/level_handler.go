package handler

import (
	"github.com/gofiber/fiber/v2"

	"eduplatform/internal/domain"
	"eduplatform/internal/middleware"
	"eduplatform/internal/pkg/apperror"
	"eduplatform/internal/service/access"
	"eduplatform/internal/service/content"
	"eduplatform/internal/service/level"
)

type LevelHandler struct {
	levelService   level.Service
	accessService  access.Service
	contentService content.Service
}

// NewLevelHandler builds the level routes. contentService may be nil when
// object storage is not configured.
func NewLevelHandler(levelService level.Service, accessService access.Service, contentService content.Service) *LevelHandler {
	return &LevelHandler{
		levelService:   levelService,
		accessService:  accessService,
		contentService: contentService,
	}
}

func (h *LevelHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	levels, err := h.accessService.ListLevels(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if levels == nil {
		levels = []domain.LevelWithAccess{}
	}

	return c.Status(fiber.StatusOK).JSON(levels)
}

func (h *LevelHandler) Create(c *fiber.Ctx) error {
	var input domain.CreateLevelInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	created, err := h.levelService.Create(c.UserContext(), middleware.CurrentReviewer(c), input, middleware.RequestMeta(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *LevelHandler) Update(c *fiber.Ctx) error {
	levelID, err := parseUUIDParam(c, "levelId")
	if err != nil {
		return err
	}

	var input domain.UpdateLevelInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	updated, err := h.levelService.Update(c.UserContext(), middleware.CurrentReviewer(c), levelID, input, middleware.RequestMeta(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(updated)
}

func (h *LevelHandler) CheckAccess(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	levelID, err := parseUUIDParam(c, "levelId")
	if err != nil {
		return err
	}

	hasAccess, err := h.accessService.HasAccess(c.UserContext(), userID, levelID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"level_id":   levelID,
		"has_access": hasAccess,
	})
}

func (h *LevelHandler) PlaybackURL(c *fiber.Ctx) error {
	if h.contentService == nil {
		return apperror.New(apperror.CodeDependency, "content storage is not configured")
	}

	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	levelID, err := parseUUIDParam(c, "levelId")
	if err != nil {
		return err
	}

	playback, err := h.contentService.PlaybackURL(c.UserContext(), userID, levelID, c.Query("object"))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(playback)
}
