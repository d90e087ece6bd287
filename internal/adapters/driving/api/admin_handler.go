package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
)

// AdminHandler serves operational routes.
type AdminHandler struct {
	admin driving.AdminService
}

func NewAdminHandler(admin driving.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// HandleResetStale returns stuck documents to pending.
func (h *AdminHandler) HandleResetStale(c *fiber.Ctx) error {
	if h.admin == nil {
		return domain.ErrNotImplemented
	}

	ids, err := h.admin.ResetStale(c.UserContext())
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(fiber.Map{"reset": ids, "total": len(ids)})
}
