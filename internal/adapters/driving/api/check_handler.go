package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
)

type CheckHandler struct {
	index IndexStats
	query driving.QueryService
}

func NewCheckHandler(index IndexStats, query driving.QueryService) *CheckHandler {
	return &CheckHandler{index: index, query: query}
}

func (h CheckHandler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok"})
}

// HandleServices reports each backing service. The vector database is
// "unavailable" when its chunk count cannot be read.
func (h CheckHandler) HandleServices(c *fiber.Ctx) error {
	vector := fiber.Map{"status": "active", "total_chunks": 0}
	if h.index != nil {
		n, err := h.index.Count(c.UserContext())
		if err != nil {
			vector["status"] = "unavailable"
		} else {
			vector["total_chunks"] = n
		}
	}

	status := "healthy"
	if vector["status"] != "active" {
		status = "degraded"
	}
	return c.JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"services": fiber.Map{
			"embedding_service": "active",
			"parser_service":    "active",
			"vector_database":   vector,
		},
	})
}

// HandleReadiness reports whether embeddings and parsers are available.
func (h CheckHandler) HandleReadiness(c *fiber.Ctx) error {
	dims := 0
	if h.index != nil {
		dims = h.index.Dimensions()
	}
	plugins := len(h.query.ListParsers())
	return c.JSON(fiber.Map{
		"ready":                  dims > 0 && plugins > 0,
		"embedding_model_loaded": dims > 0,
		"embedding_dimension":    dims,
		"plugins_loaded":         plugins,
	})
}
